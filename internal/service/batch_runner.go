package service

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mailparser/internal/domain"
)

// BatchItem is one document queued for batch processing.
type BatchItem struct {
	Name  string
	Input IntakeInput
}

// BatchOutcome is the result of one BatchItem, in input order.
type BatchOutcome struct {
	Name   string
	Record *domain.ExtractionRecord
	Err    error
}

// BatchRunner processes documents through an IntakeService with bounded concurrency.
type BatchRunner struct {
	intake      IntakeService
	concurrency int
	log         zerolog.Logger
}

// NewBatchRunner creates a BatchRunner. concurrency < 1 is treated as 1.
func NewBatchRunner(intake IntakeService, concurrency int, logger zerolog.Logger) *BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchRunner{intake: intake, concurrency: concurrency, log: logger}
}

// Run processes every item and returns one outcome per item. A failure on one
// item never stops the others; items not started before ctx ends report ctx.Err().
func (b *BatchRunner) Run(ctx context.Context, items []BatchItem) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(items))

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i := range items {
		outcomes[i].Name = items[i].Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			rec, err := b.intake.Process(ctx, items[i].Input)
			outcomes[i].Record = rec
			outcomes[i].Err = err
			if err != nil {
				b.log.Warn().Err(err).Str("item", items[i].Name).Msg("batchRunner.Run: item failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	b.log.Info().Int("items", len(items)).Int("concurrency", b.concurrency).Msg("batchRunner.Run: batch complete")
	return outcomes
}
