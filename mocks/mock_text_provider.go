package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTextProvider is a mock implementation of port.TextProvider.
type MockTextProvider struct {
	mock.Mock
}

func (m *MockTextProvider) ExtractText(ctx context.Context, data []byte) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}
