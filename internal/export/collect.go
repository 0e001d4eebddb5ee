package export

import (
	"context"
	"fmt"

	"mailparser/internal/domain"
)

// PageSize is the number of records fetched per List call by Collect.
const PageSize = 500

// Lister pages through stored extraction records.
type Lister interface {
	List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error)
}

// Collect reads every record from l in storage order.
func Collect(ctx context.Context, l Lister) ([]domain.ExtractionRecord, error) {
	var all []domain.ExtractionRecord
	for offset := 0; ; offset += PageSize {
		page, total, err := l.List(ctx, offset, PageSize)
		if err != nil {
			return nil, fmt.Errorf("export.Collect: %w", err)
		}
		all = append(all, page...)
		if len(page) < PageSize || len(all) >= total {
			return all, nil
		}
	}
}
