// Package extraction runs the tiered strict-to-lenient extraction cascade.
package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mailparser/internal/amount"
	"mailparser/internal/domain"
	"mailparser/internal/jsonextract"
	"mailparser/internal/port"
	"mailparser/internal/prompt"
	"mailparser/internal/schema"
	"mailparser/internal/validator"
)

const failureMessage = "failed to extract invoice data"

// Attempt is one tier of the cascade: which prompt to send and how
// strictly to validate the reply. Lower ranks run first.
type Attempt struct {
	Rank     int
	Variant  domain.Variant
	Template prompt.Template
}

// DefaultAttempts returns the strict, partial, free-form cascade.
func DefaultAttempts() []Attempt {
	return []Attempt{
		{Rank: 1, Variant: domain.VariantStrict, Template: prompt.TemplateStrict},
		{Rank: 2, Variant: domain.VariantPartial, Template: prompt.TemplateFlexible},
		{Rank: 3, Variant: domain.VariantFreeForm, Template: prompt.TemplateFreeForm},
	}
}

// Extractor turns document text into a StructuredInvoice by trying each
// Attempt in order until one validates. It holds no per-call state and is
// safe for concurrent use.
type Extractor struct {
	completer port.Completer
	attempts  []Attempt
	model     string
	checks    bool
	log       zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithModel sets the model name passed on every completion request.
func WithModel(model string) Option {
	return func(e *Extractor) { e.model = model }
}

// WithAttempts replaces the default cascade.
func WithAttempts(attempts []Attempt) Option {
	return func(e *Extractor) {
		e.attempts = append([]Attempt(nil), attempts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithConsistencyChecks toggles the arithmetic and presence checks whose
// failures are reported as warnings on successful results.
func WithConsistencyChecks(enabled bool) Option {
	return func(e *Extractor) { e.checks = enabled }
}

// NewExtractor creates an Extractor around completer.
func NewExtractor(completer port.Completer, opts ...Option) *Extractor {
	e := &Extractor{
		completer: completer,
		attempts:  DefaultAttempts(),
		checks:    true,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the cascade over documentText. It never returns an error:
// failures come back as a result whose Failure is set.
func (e *Extractor) Extract(ctx context.Context, documentText string) domain.ExtractionResult {
	outcomes := make([]domain.AttemptOutcome, 0, len(e.attempts))
	lastMessage := "no extraction attempts configured"

	for _, a := range e.attempts {
		if err := ctx.Err(); err != nil {
			lastMessage = err.Error()
			e.log.Warn().Err(err).Int("tier", a.Rank).Msg("extraction.Extractor: context done, stopping cascade")
			break
		}

		start := time.Now()
		inv, warnings, err := e.runTier(ctx, a, documentText)
		if err == nil {
			e.log.Info().
				Int("tier", a.Rank).
				Str("variant", string(a.Variant)).
				Dur("elapsed", time.Since(start)).
				Int("warnings", len(warnings)).
				Msg("extraction.Extractor: tier succeeded")
			if e.checks {
				warnings = append(warnings, validator.Warnings(ctx, inv)...)
			}
			return domain.ExtractionResult{
				Invoice:  inv,
				Tier:     &domain.TierInfo{Rank: a.Rank, Variant: a.Variant},
				Warnings: warnings,
			}
		}

		category := domain.CategoryOf(err)
		lastMessage = err.Error()
		outcomes = append(outcomes, domain.AttemptOutcome{
			Rank:     a.Rank,
			Variant:  a.Variant,
			Category: category,
			Message:  err.Error(),
		})
		e.log.Warn().
			Err(err).
			Int("tier", a.Rank).
			Str("variant", string(a.Variant)).
			Str("category", string(category)).
			Dur("elapsed", time.Since(start)).
			Msg("extraction.Extractor: tier failed")
	}

	e.log.Error().
		Int("tiers", len(outcomes)).
		Int("input_bytes", len(documentText)).
		Msg("extraction.Extractor: all tiers failed")

	return domain.ExtractionResult{
		Failure: &domain.ExtractionFailure{
			Category:    domain.CategoryAllTiersFailed,
			Message:     fmt.Sprintf("%s: %s", failureMessage, lastMessage),
			InputSample: domain.Sample(documentText, domain.InputSampleLimit),
			Attempts:    outcomes,
		},
	}
}

// runTier performs one prompt, call, parse, validate pass.
func (e *Extractor) runTier(ctx context.Context, a Attempt, documentText string) (*domain.StructuredInvoice, []string, error) {
	var instructions string
	if a.Variant != domain.VariantFreeForm {
		instructions = schema.FormatInstructions(a.Variant)
	}
	p := prompt.Build(a.Template, instructions, documentText)

	out, err := e.completer.Complete(ctx, port.CompletionRequest{
		Prompt:      p,
		Model:       e.model,
		Temperature: 0,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: completion call failed: %v", domain.ErrEmptyModelOutput, err)
	}

	rec, err := jsonextract.Extract(out)
	if err != nil {
		return nil, nil, err
	}

	inv, warnings, err := schema.Validate(amount.NormalizeRecord(rec), a.Variant)
	if err != nil {
		return nil, nil, err
	}
	return inv, warnings, nil
}
