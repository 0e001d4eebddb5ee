package invoice

import (
	"context"
	"fmt"

	"mailparser/internal/domain"
)

// presenceValidator flags fields a reviewer expects on every purchase
// order. Lenient tiers may legitimately leave them empty, so failures are
// informational.
type presenceValidator struct {
	ruleKey   string
	ruleName  string
	fieldPath string
	present   func(*domain.StructuredInvoice) bool
}

func (v *presenceValidator) RuleKey() string  { return v.ruleKey }
func (v *presenceValidator) RuleName() string { return v.ruleName }

func (v *presenceValidator) Validate(_ context.Context, data *domain.StructuredInvoice) []ValidationResult {
	ok := v.present(data)
	msg := fmt.Sprintf("%s: %s is present", v.ruleName, v.fieldPath)
	if !ok {
		msg = fmt.Sprintf("%s: %s is missing", v.ruleName, v.fieldPath)
	}
	return []ValidationResult{{
		RuleKey:       v.ruleKey,
		Severity:      SeverityInfo,
		Passed:        ok,
		FieldPath:     v.fieldPath,
		ExpectedValue: "non-empty value",
		Message:       msg,
	}}
}

// PresenceValidators returns validators for the fields every purchase order should carry.
func PresenceValidators() []*presenceValidator {
	return []*presenceValidator{
		{
			ruleKey: "presence.po_number", ruleName: "Presence: PO Number", fieldPath: "po_number",
			present: func(d *domain.StructuredInvoice) bool { return d.PONumber != "" },
		},
		{
			ruleKey: "presence.total_amount", ruleName: "Presence: Total Amount", fieldPath: "total_amount",
			present: func(d *domain.StructuredInvoice) bool { return d.TotalAmount != nil },
		},
		{
			ruleKey: "presence.line_items", ruleName: "Presence: Line Items", fieldPath: "line_items",
			present: func(d *domain.StructuredInvoice) bool { return len(d.LineItems) > 0 },
		},
		{
			ruleKey: "presence.billing_info", ruleName: "Presence: Billing Info", fieldPath: "billing_info",
			present: func(d *domain.StructuredInvoice) bool { return d.BillingInfo != nil && d.BillingInfo.Company != "" },
		},
	}
}
