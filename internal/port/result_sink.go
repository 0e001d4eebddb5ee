package port

import (
	"context"

	"mailparser/internal/domain"
)

// ResultSink persists extraction records. Records are only ever appended.
type ResultSink interface {
	Append(ctx context.Context, record *domain.ExtractionRecord) error
}

// ExtractionLogRepository is a queryable ResultSink.
type ExtractionLogRepository interface {
	ResultSink
	List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error)
	Ping(ctx context.Context) error
}
