package invoice

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"mailparser/internal/amount"
	"mailparser/internal/domain"
)

var mathTolerance = decimal.RequireFromString("0.02")

// mathValidator checks an arithmetic relationship between invoice fields.
// Rules skip silently when any operand is absent.
type mathValidator struct {
	ruleKey  string
	ruleName string
	validate func(*domain.StructuredInvoice) []ValidationResult
}

func (v *mathValidator) RuleKey() string  { return v.ruleKey }
func (v *mathValidator) RuleName() string { return v.ruleName }

func (v *mathValidator) Validate(_ context.Context, data *domain.StructuredInvoice) []ValidationResult {
	return v.validate(data)
}

func approxEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(mathTolerance)
}

func dec(p *float64) decimal.Decimal {
	return decimal.NewFromFloat(*p)
}

func mathResult(ruleKey string, passed bool, fieldPath string, expected, actual decimal.Decimal, ruleName string) ValidationResult {
	msg := fmt.Sprintf("%s: %s calculation matches", ruleName, fieldPath)
	if !passed {
		msg = fmt.Sprintf("%s: %s calculation mismatch (expected %s, got %s)", ruleName, fieldPath, expected.StringFixed(2), actual.StringFixed(2))
	}
	return ValidationResult{
		RuleKey: ruleKey, Severity: SeverityWarning,
		Passed: passed, FieldPath: fieldPath,
		ExpectedValue: expected.StringFixed(2), ActualValue: actual.StringFixed(2), Message: msg,
	}
}

// MathValidators returns all arithmetic consistency validators.
func MathValidators() []*mathValidator {
	return []*mathValidator{
		{
			ruleKey: "math.line_item.total", ruleName: "Math: Line Item Total",
			validate: func(d *domain.StructuredInvoice) []ValidationResult {
				var results []ValidationResult
				for i := range d.LineItems {
					item := &d.LineItems[i]
					if item.Quantity == nil || item.UnitPrice == nil || item.Total == nil {
						continue
					}
					expected := dec(item.Quantity).Mul(dec(item.UnitPrice))
					actual := dec(item.Total)
					fp := fmt.Sprintf("line_items[%d].total", i)
					results = append(results, mathResult("math.line_item.total", approxEqual(expected, actual), fp, expected, actual, "Math: Line Item Total"))
				}
				return results
			},
		},
		{
			ruleKey: "math.subtotal", ruleName: "Math: Subtotal",
			validate: func(d *domain.StructuredInvoice) []ValidationResult {
				if d.Subtotal == nil || len(d.LineItems) == 0 {
					return nil
				}
				sum := decimal.Zero
				for i := range d.LineItems {
					if d.LineItems[i].Total == nil {
						return nil
					}
					sum = sum.Add(dec(d.LineItems[i].Total))
				}
				actual := dec(d.Subtotal)
				return []ValidationResult{mathResult("math.subtotal", approxEqual(sum, actual), "subtotal", sum, actual, "Math: Subtotal")}
			},
		},
		{
			ruleKey: "math.total_amount", ruleName: "Math: Grand Total",
			validate: func(d *domain.StructuredInvoice) []ValidationResult {
				if d.Subtotal == nil || d.TotalAmount == nil {
					return nil
				}
				expected := dec(d.Subtotal)
				if d.Tax != nil {
					expected = expected.Add(dec(d.Tax))
				}
				if d.Shipping != nil {
					expected = expected.Add(dec(d.Shipping))
				}
				actual := dec(d.TotalAmount)
				return []ValidationResult{mathResult("math.total_amount", approxEqual(expected, actual), "total_amount", expected, actual, "Math: Grand Total")}
			},
		},
		{
			ruleKey: "math.tax", ruleName: "Math: Tax From Rate",
			validate: func(d *domain.StructuredInvoice) []ValidationResult {
				if d.Subtotal == nil || d.Tax == nil || d.TaxRate == "" {
					return nil
				}
				rate := amount.FromString(d.TaxRate)
				if rate == nil {
					return nil
				}
				expected := dec(d.Subtotal).Mul(dec(rate)).Div(decimal.NewFromInt(100)).Round(2)
				actual := dec(d.Tax)
				return []ValidationResult{mathResult("math.tax", approxEqual(expected, actual), "tax", expected, actual, "Math: Tax From Rate")}
			},
		},
	}
}
