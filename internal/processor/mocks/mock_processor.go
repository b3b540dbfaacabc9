package mocks

import (
	"github.com/stretchr/testify/mock"

	"filehost/internal/model"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Enqueue(f model.FinishedFile) {
	m.Called(f)
}
