package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage contains permanent-storage abstractions for finalized
// uploads. Keys are content-addressed paths produced by the upload pipeline;
// implementations must make PutFile atomic from the perspective of readers.

// ErrPresignNotSupported is returned by backends that cannot issue
// credential-free download URLs; callers fall back to streaming.
var ErrPresignNotSupported = errors.New("presigned URLs not supported by this backend")

// PutOptions define optional parameters for storing objects.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage is the permanent-storage backend. PutFile promotes a local scratch
// file to the given key without removing the source; no reader may ever
// observe a partially written object at the final key.
type Storage interface {
	// PutFile stores the file at srcPath under key.
	PutFile(ctx context.Context, key, srcPath string, opt PutOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// Presign returns a time-limited URL for downloading the object without
	// credentials, or ErrPresignNotSupported.
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
}
