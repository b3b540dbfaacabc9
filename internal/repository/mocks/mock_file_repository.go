package mocks

import (
	"context"

	"filehost/internal/model"
	"filehost/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) CreateFile(ctx context.Context, f *model.File) (*model.File, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileRepository) FindFileByID(ctx context.Context, id string) (*model.File, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileRepository) ListFiles(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.File], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.File]), args.Error(1)
}

func (m *MockFileRepository) DeleteFile(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFileRepository) FindObjectByHash(ctx context.Context, hash string) (*model.StoredObject, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredObject), args.Error(1)
}

func (m *MockFileRepository) InsertObjectIfAbsent(ctx context.Context, obj *model.StoredObject) (bool, *model.StoredObject, error) {
	args := m.Called(ctx, obj)
	var existing *model.StoredObject
	if args.Get(1) != nil {
		existing = args.Get(1).(*model.StoredObject)
	}
	return args.Bool(0), existing, args.Error(2)
}

func (m *MockFileRepository) DeleteObjectIfUnreferenced(ctx context.Context, hash string) (string, bool, error) {
	args := m.Called(ctx, hash)
	return args.String(0), args.Bool(1), args.Error(2)
}
