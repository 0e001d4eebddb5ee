package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mailparser/internal/domain"
)

// MockResultSink is a mock implementation of port.ResultSink.
type MockResultSink struct {
	mock.Mock
}

func (m *MockResultSink) Append(ctx context.Context, record *domain.ExtractionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockExtractionLogRepo is a mock implementation of port.ExtractionLogRepository.
type MockExtractionLogRepo struct {
	mock.Mock
}

func (m *MockExtractionLogRepo) Append(ctx context.Context, record *domain.ExtractionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockExtractionLogRepo) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionRecord), args.Int(1), args.Error(2)
}

func (m *MockExtractionLogRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
