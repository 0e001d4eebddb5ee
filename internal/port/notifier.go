package port

import (
	"context"

	"mailparser/internal/domain"
)

// FailureNotifier alerts operators when a document could not be extracted.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, record *domain.ExtractionRecord) error
}
