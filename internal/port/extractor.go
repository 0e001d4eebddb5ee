package port

import (
	"context"

	"mailparser/internal/domain"
)

// InvoiceExtractor turns document text into a structured invoice or a failure.
type InvoiceExtractor interface {
	Extract(ctx context.Context, documentText string) domain.ExtractionResult
}
