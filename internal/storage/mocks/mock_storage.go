package mocks

import (
	"context"
	"io"
	"time"

	"filehost/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) PutFile(ctx context.Context, key, srcPath string, opt storage.PutOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, srcPath, opt)
	if f, ok := args.Get(0).(func(context.Context, string, string, storage.PutOptions) storage.ObjectInfo); ok {
		return f(ctx, key, srcPath, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}
