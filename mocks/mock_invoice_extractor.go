package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mailparser/internal/domain"
)

// MockInvoiceExtractor is a mock implementation of port.InvoiceExtractor.
type MockInvoiceExtractor struct {
	mock.Mock
}

func (m *MockInvoiceExtractor) Extract(ctx context.Context, documentText string) domain.ExtractionResult {
	args := m.Called(ctx, documentText)
	return args.Get(0).(domain.ExtractionResult)
}
