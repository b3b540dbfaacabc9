package postgres

import (
	"context"
	"database/sql"
	"errors"

	"filehost/internal/model"
	"filehost/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// CreateFile inserts a new file row and returns the stored record.
func (r *FilePostgres) CreateFile(ctx context.Context, f *model.File) (*model.File, error) {
	const q = `
		INSERT INTO files (id, filename, content_type, size, content_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, filename, content_type, size, content_hash, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		f.ID,
		f.Filename,
		f.ContentType,
		f.Size,
		f.ContentHash,
		f.CreatedAt,
	)
	var out model.File
	if err := row.Scan(
		&out.ID,
		&out.Filename,
		&out.ContentType,
		&out.Size,
		&out.ContentHash,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindFileByID fetches a single file by its ID.
func (r *FilePostgres) FindFileByID(ctx context.Context, id string) (*model.File, error) {
	const q = `
		SELECT id, filename, content_type, size, content_hash, created_at
		FROM files
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var f model.File
	if err := row.Scan(
		&f.ID,
		&f.Filename,
		&f.ContentType,
		&f.Size,
		&f.ContentHash,
		&f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFiles returns files using LIMIT/OFFSET pagination and a total count.
func (r *FilePostgres) ListFiles(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.File], error) {
	const qCount = `SELECT COUNT(*) FROM files`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, filename, content_type, size, content_hash, created_at
		FROM files
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.File, 0)
	for rows.Next() {
		var f model.File
		if err := rows.Scan(
			&f.ID,
			&f.Filename,
			&f.ContentType,
			&f.Size,
			&f.ContentHash,
			&f.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.File]{
		Items: items,
		Total: total,
	}, nil
}

// DeleteFile removes a file by ID. It does not return an error if the row does not exist.
func (r *FilePostgres) DeleteFile(ctx context.Context, id string) error {
	const q = `DELETE FROM files WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// FindObjectByHash looks up the stored object for a content hash.
func (r *FilePostgres) FindObjectByHash(ctx context.Context, hash string) (*model.StoredObject, error) {
	const q = `
		SELECT content_hash, storage_path, size, created_at
		FROM stored_objects
		WHERE content_hash = $1
	`
	row := r.db.QueryRowContext(ctx, q, hash)
	var obj model.StoredObject
	if err := row.Scan(
		&obj.ContentHash,
		&obj.StoragePath,
		&obj.Size,
		&obj.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &obj, nil
}

// InsertObjectIfAbsent reserves a content hash in one statement. The CTE
// attempts the insert; when the hash already exists the outer select falls
// through to the existing row, so concurrent identical uploads resolve
// deterministically without a check-then-act window.
func (r *FilePostgres) InsertObjectIfAbsent(ctx context.Context, obj *model.StoredObject) (bool, *model.StoredObject, error) {
	const q = `
		WITH ins AS (
			INSERT INTO stored_objects (content_hash, storage_path, size, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (content_hash) DO NOTHING
			RETURNING content_hash, storage_path, size, created_at
		)
		SELECT content_hash, storage_path, size, created_at, TRUE AS inserted FROM ins
		UNION ALL
		SELECT content_hash, storage_path, size, created_at, FALSE FROM stored_objects WHERE content_hash = $1
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q,
		obj.ContentHash,
		obj.StoragePath,
		obj.Size,
		obj.CreatedAt,
	)
	var out model.StoredObject
	var inserted bool
	if err := row.Scan(
		&out.ContentHash,
		&out.StoragePath,
		&out.Size,
		&out.CreatedAt,
		&inserted,
	); err != nil {
		return false, nil, err
	}
	return inserted, &out, nil
}

// DeleteObjectIfUnreferenced removes the object row only when no file rows
// point at its hash, so shared content survives individual file deletes.
func (r *FilePostgres) DeleteObjectIfUnreferenced(ctx context.Context, hash string) (string, bool, error) {
	const q = `
		DELETE FROM stored_objects
		WHERE content_hash = $1
		  AND NOT EXISTS (SELECT 1 FROM files WHERE content_hash = $1)
		RETURNING storage_path
	`
	var storagePath string
	err := r.db.QueryRowContext(ctx, q, hash).Scan(&storagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return storagePath, true, nil
}
