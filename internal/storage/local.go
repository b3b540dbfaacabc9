package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"
)

// localStorage keeps objects in a directory tree on disk. Writes go to a
// temp file in the destination directory and are renamed into place, so the
// final path only ever holds a complete object.
type localStorage struct {
	root string
}

// NewLocal creates a disk-backed storage rooted at dir.
func NewLocal(dir string) (Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &localStorage{root: dir}, nil
}

func (l *localStorage) objectPath(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *localStorage) PutFile(ctx context.Context, key, srcPath string, opt PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	dest := l.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ObjectInfo{}, err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".put_*")
	if err != nil {
		return ObjectInfo{}, err
	}

	n, err := io.Copy(tmp, src)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return ObjectInfo{}, err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return ObjectInfo{}, err
	}

	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
	}, nil
}

func (l *localStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	p := l.objectPath(key)
	f, err := os.Open(p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	info := ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(key)),
		LastModified: st.ModTime(),
	}
	return f, info, nil
}

func (l *localStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(l.objectPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (l *localStorage) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", ErrPresignNotSupported
}
