package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mailparser/internal/domain"
)

// MockFailureNotifier is a mock implementation of port.FailureNotifier.
type MockFailureNotifier struct {
	mock.Mock
}

func (m *MockFailureNotifier) NotifyFailure(ctx context.Context, record *domain.ExtractionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
