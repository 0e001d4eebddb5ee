// Package validator runs post-extraction consistency rules over an invoice.
// Rule failures never reject a record; they become warnings.
package validator

import (
	"context"

	"mailparser/internal/domain"
	"mailparser/internal/validator/invoice"
)

// Validator is the interface for a single built-in consistency rule.
type Validator interface {
	Validate(ctx context.Context, data *domain.StructuredInvoice) []invoice.ValidationResult
	RuleKey() string
	RuleName() string
}

// Check runs every validator in r and returns all results.
func Check(ctx context.Context, r *Registry, data *domain.StructuredInvoice) []invoice.ValidationResult {
	if data == nil {
		return nil
	}
	var results []invoice.ValidationResult
	for _, v := range r.All() {
		results = append(results, v.Validate(ctx, data)...)
	}
	return results
}

// Warnings runs the default registry and returns the messages of failed rules.
func Warnings(ctx context.Context, data *domain.StructuredInvoice) []string {
	var out []string
	for _, res := range Check(ctx, DefaultRegistry(), data) {
		if !res.Passed {
			out = append(out, res.Message)
		}
	}
	return out
}
