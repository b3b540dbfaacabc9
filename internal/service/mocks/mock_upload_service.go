package mocks

import (
	"context"

	"filehost/internal/upload"
	"github.com/stretchr/testify/mock"
)

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) ReceiveChunk(ctx context.Context, req upload.ChunkRequest) (*upload.Ack, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upload.Ack), args.Error(1)
}

func (m *MockUploadService) Progress(ctx context.Context, uploadID string) (upload.Progress, error) {
	args := m.Called(ctx, uploadID)
	return args.Get(0).(upload.Progress), args.Error(1)
}
