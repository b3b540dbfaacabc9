package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"filehost/internal/model"
	"filehost/internal/repository"
	"filehost/internal/storage"
	"filehost/internal/upload"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("file not found")
)

// FileListResult is the service-level DTO for paginated files.
type FileListResult struct {
	Items []model.File `json:"data"`
	Total int          `json:"total"`
}

// FileService defines the use cases for the stored file corpus. These are the
// thin CRUD routes around the upload pipeline; deletion is the only one with
// real logic, because the physical object is shared between deduplicated files.
type FileService interface {
	// List returns files using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*FileListResult, error)

	// Get returns a single file by its ID.
	Get(ctx context.Context, id string) (*model.File, error)

	// Delete removes a file record; the underlying stored object is deleted
	// only when no other file references its content.
	Delete(ctx context.Context, id string) error

	// Download returns a streaming reader for the file's content.
	Download(ctx context.Context, id string) (io.ReadCloser, *model.File, error)

	// PresignDownload returns a time-limited download URL, or
	// storage.ErrPresignNotSupported for backends without presigning.
	PresignDownload(ctx context.Context, id string, expiry time.Duration) (string, error)
}

// UploadService is the chunk ingestion contract implemented by *upload.Pipeline.
type UploadService interface {
	ReceiveChunk(ctx context.Context, req upload.ChunkRequest) (*upload.Ack, error)
	Progress(ctx context.Context, uploadID string) (upload.Progress, error)
}

type fileService struct {
	store storage.Storage
	repo  repository.FileRepository
}

// NewFileService constructs a new FileService.
func NewFileService(store storage.Storage, repo repository.FileRepository) FileService {
	return &fileService{store: store, repo: repo}
}

func (s *fileService) List(ctx context.Context, limit, offset int) (*FileListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.ListFiles(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &FileListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *fileService) Get(ctx context.Context, id string) (*model.File, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	f, err := s.repo.FindFileByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes the file record first, then reaps the stored object when the
// last reference is gone.
func (s *fileService) Delete(ctx context.Context, id string) error {
	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}

	storagePath, deleted, err := s.repo.DeleteObjectIfUnreferenced(ctx, f.ContentHash)
	if err != nil {
		return fmt.Errorf("reap stored object: %w", err)
	}
	if deleted {
		if err := s.store.Delete(ctx, storagePath); err != nil {
			return fmt.Errorf("delete storage object: %w", err)
		}
	}
	return nil
}

func (s *fileService) Download(ctx context.Context, id string) (io.ReadCloser, *model.File, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.repo.FindObjectByHash(ctx, f.ContentHash)
	if err != nil {
		return nil, nil, err
	}
	if obj == nil {
		return nil, nil, ErrNotFound
	}
	rc, _, err := s.store.Get(ctx, obj.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

func (s *fileService) PresignDownload(ctx context.Context, id string, expiry time.Duration) (string, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	obj, err := s.repo.FindObjectByHash(ctx, f.ContentHash)
	if err != nil {
		return "", err
	}
	if obj == nil {
		return "", ErrNotFound
	}
	return s.store.Presign(ctx, obj.StoragePath, expiry)
}
