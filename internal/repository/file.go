package repository

import (
	"context"

	"filehost/internal/model"
)

// FileRepository defines data access for files and their stored objects using
// SQL queries only. No business logic here — strictly persistence operations.
type FileRepository interface {
	// CreateFile inserts a new file record referencing an existing stored object.
	CreateFile(ctx context.Context, f *model.File) (*model.File, error)

	// FindFileByID returns a file by its ID.
	FindFileByID(ctx context.Context, id string) (*model.File, error)

	// ListFiles returns a paginated list of files and a total row count.
	ListFiles(ctx context.Context, pq PageQuery) (*PageResult[model.File], error)

	// DeleteFile removes a file record by ID. Returns nil if the row was
	// deleted or did not exist.
	DeleteFile(ctx context.Context, id string) error

	// FindObjectByHash looks up a stored object by content hash.
	// Returns nil, nil if not found.
	FindObjectByHash(ctx context.Context, hash string) (*model.StoredObject, error)

	// InsertObjectIfAbsent atomically reserves a content hash. It is a single
	// insert-if-absent statement, never a lookup followed by an insert: when
	// two uploads of identical content race, exactly one gets inserted=true
	// and the other receives the existing object.
	InsertObjectIfAbsent(ctx context.Context, obj *model.StoredObject) (inserted bool, existing *model.StoredObject, err error)

	// DeleteObjectIfUnreferenced removes the stored object for hash when no
	// file rows reference it, returning its storage path and whether a row
	// was deleted.
	DeleteObjectIfUnreferenced(ctx context.Context, hash string) (storagePath string, deleted bool, err error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
