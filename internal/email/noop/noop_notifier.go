package noop

import (
	"context"

	"github.com/rs/zerolog"

	"mailparser/internal/domain"
	"mailparser/internal/port"
)

type noopNotifier struct {
	log zerolog.Logger
}

// NewFailureNotifier creates a FailureNotifier that only logs the alert.
func NewFailureNotifier(logger zerolog.Logger) port.FailureNotifier {
	return &noopNotifier{log: logger}
}

func (n *noopNotifier) NotifyFailure(_ context.Context, rec *domain.ExtractionRecord) error {
	ev := n.log.Info().Str("request_id", rec.RequestID).Str("source", rec.Source)
	if rec.Failure != nil {
		ev = ev.Str("category", string(rec.Failure.Category)).Str("message", rec.Failure.Message)
	}
	ev.Msg("[NOOP EMAIL] extraction failure alert")
	return nil
}
