package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyModelOutput    = errors.New("model returned no usable output")
	ErrNoJSONFound         = errors.New("no JSON object found in model output")
	ErrInvalidJSONSyntax   = errors.New("invalid JSON syntax")
	ErrUnexpectedJSONShape = errors.New("expected a JSON object")
	ErrSchemaViolation     = errors.New("record violates schema")
	ErrAllTiersFailed      = errors.New("all extraction tiers failed")

	ErrNoContent           = errors.New("no content provided")
	ErrEmptyPayload        = errors.New("empty payload")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrNoExtractableText   = errors.New("document contains no extractable text")
)

// SchemaViolationError names the first field that failed validation.
type SchemaViolationError struct {
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema violation: %s", e.Reason)
	}
	return fmt.Sprintf("schema violation at %s: %s", e.Field, e.Reason)
}

func (e *SchemaViolationError) Unwrap() error {
	return ErrSchemaViolation
}

// NewSchemaViolation creates a SchemaViolationError for the given field path.
func NewSchemaViolation(field, reason string) *SchemaViolationError {
	return &SchemaViolationError{Field: field, Reason: reason}
}

// CategoryOf maps an error chain onto the extraction error taxonomy.
// Errors outside the taxonomy are reported as EmptyModelOutput, since the
// only other failure source inside a tier is the completion call itself.
func CategoryOf(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAllTiersFailed):
		return CategoryAllTiersFailed
	case errors.Is(err, ErrSchemaViolation):
		return CategorySchemaViolation
	case errors.Is(err, ErrUnexpectedJSONShape):
		return CategoryUnexpectedJSONShape
	case errors.Is(err, ErrInvalidJSONSyntax):
		return CategoryInvalidJSONSyntax
	case errors.Is(err, ErrNoJSONFound):
		return CategoryNoJSONFound
	default:
		return CategoryEmptyModelOutput
	}
}
