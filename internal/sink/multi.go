package sink

import (
	"context"
	"errors"

	"mailparser/internal/domain"
	"mailparser/internal/port"
)

// Multi fans a record out to every wrapped sink. Each sink is attempted even
// if an earlier one fails; failures are joined.
type Multi []port.ResultSink

func (m Multi) Append(ctx context.Context, record *domain.ExtractionRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop discards every record.
type Noop struct{}

func (Noop) Append(context.Context, *domain.ExtractionRecord) error { return nil }
