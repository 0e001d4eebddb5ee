package domain

import (
	"time"
	"unicode/utf8"
)

// InputSampleLimit bounds the document excerpt attached to a failure.
const InputSampleLimit = 500

// TierInfo identifies which attempt produced a result.
type TierInfo struct {
	Rank    int     `json:"rank"`
	Variant Variant `json:"variant"`
}

// AttemptOutcome records why a single tier did not succeed.
type AttemptOutcome struct {
	Rank     int           `json:"rank"`
	Variant  Variant       `json:"variant"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}

// ExtractionFailure is the structured error payload returned after every tier failed.
type ExtractionFailure struct {
	Category    ErrorCategory    `json:"category"`
	Message     string           `json:"message"`
	InputSample string           `json:"input_sample"`
	Attempts    []AttemptOutcome `json:"attempts,omitempty"`
}

// ExtractionResult holds either an invoice with its tier or a failure.
type ExtractionResult struct {
	Invoice  *StructuredInvoice `json:"invoice,omitempty"`
	Tier     *TierInfo          `json:"tier,omitempty"`
	Failure  *ExtractionFailure `json:"failure,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

// Succeeded reports whether the result carries an invoice.
func (r ExtractionResult) Succeeded() bool {
	return r.Invoice != nil
}

// ExtractionRecord is one append-only log entry for a processed document.
type ExtractionRecord struct {
	ID          string             `json:"id" db:"id"`
	RequestID   string             `json:"request_id" db:"request_id"`
	Source      string             `json:"source" db:"source"`
	Filename    string             `json:"filename,omitempty" db:"filename"`
	Metadata    map[string]string  `json:"email_metadata,omitempty"`
	Status      RecordStatus       `json:"status" db:"status"`
	TierRank    int                `json:"tier_rank,omitempty" db:"tier_rank"`
	TierVariant Variant            `json:"tier_variant,omitempty" db:"tier_variant"`
	Invoice     *StructuredInvoice `json:"invoice,omitempty"`
	Failure     *ExtractionFailure `json:"failure,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	InputBytes  int                `json:"input_bytes" db:"input_bytes"`
	CreatedAt   time.Time          `json:"timestamp" db:"created_at"`
}

// Sample returns at most n runes of text, followed by "..." when truncated.
func Sample(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
