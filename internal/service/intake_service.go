package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mailparser/internal/domain"
	"mailparser/internal/port"
)

// IntakeInput is the DTO for one inbound document.
type IntakeInput struct {
	RequestID string
	Source    string
	Filename  string
	Metadata  map[string]string
	Document  domain.RawDocument
}

// IntakeService defines the document intake contract.
type IntakeService interface {
	Process(ctx context.Context, input IntakeInput) (*domain.ExtractionRecord, error)
}

type intakeService struct {
	extractor port.InvoiceExtractor
	sink      port.ResultSink
	notifier  port.FailureNotifier
	timeout   time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewIntakeService creates a new IntakeService. A zero timeout disables the
// per-document deadline; a nil notifier disables failure alerts.
func NewIntakeService(
	extractor port.InvoiceExtractor,
	sink port.ResultSink,
	notifier port.FailureNotifier,
	timeout time.Duration,
	logger zerolog.Logger,
) IntakeService {
	return &intakeService{
		extractor: extractor,
		sink:      sink,
		notifier:  notifier,
		timeout:   timeout,
		log:       logger,
		now:       time.Now,
	}
}

func (s *intakeService) Process(ctx context.Context, input IntakeInput) (*domain.ExtractionRecord, error) {
	if input.Document.IsEmpty() {
		return nil, domain.ErrNoContent
	}
	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	log := s.log.With().Str("request_id", requestID).Str("source", input.Source).Logger()

	extractCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	result := s.extractor.Extract(extractCtx, input.Document.Combined())

	record := &domain.ExtractionRecord{
		ID:         uuid.New().String(),
		RequestID:  requestID,
		Source:     input.Source,
		Filename:   input.Filename,
		Metadata:   input.Metadata,
		InputBytes: input.Document.Len(),
		CreatedAt:  s.now().UTC(),
	}
	if result.Succeeded() {
		record.Status = domain.RecordStatusSucceeded
		record.Invoice = result.Invoice
		record.Warnings = result.Warnings
		if result.Tier != nil {
			record.TierRank = result.Tier.Rank
			record.TierVariant = result.Tier.Variant
		}
		log.Info().
			Int("tier", record.TierRank).
			Str("variant", string(record.TierVariant)).
			Int("warnings", len(record.Warnings)).
			Dur("elapsed", s.now().Sub(start)).
			Msg("intakeService.Process: invoice extracted")
	} else {
		record.Status = domain.RecordStatusFailed
		record.Failure = result.Failure
		ev := log.Warn().Dur("elapsed", s.now().Sub(start))
		if result.Failure != nil {
			ev = ev.Str("category", string(result.Failure.Category)).Str("error", result.Failure.Message)
		}
		ev.Msg("intakeService.Process: extraction failed")
	}

	// Persist and alert even when the request context has expired.
	bg := context.WithoutCancel(ctx)
	if err := s.sink.Append(bg, record); err != nil {
		log.Error().Err(err).Str("record_id", record.ID).Msg("intakeService.Process: failed to persist record")
	}
	if record.Status == domain.RecordStatusFailed && s.notifier != nil {
		if err := s.notifier.NotifyFailure(bg, record); err != nil {
			log.Error().Err(err).Str("record_id", record.ID).Msg("intakeService.Process: failed to send failure alert")
		}
	}
	return record, nil
}
