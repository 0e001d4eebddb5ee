package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailparser/internal/domain"
	"mailparser/internal/schema"
)

func validStrictRecord() map[string]any {
	return map[string]any{
		"po_number": "PO-2024-001",
		"po_date":   "2024-03-01",
		"billing_info": map[string]any{
			"company": "Acme Corp",
			"address": "1 Main St, Springfield",
			"phone":   5551234,
		},
		"line_items": []any{
			map[string]any{"item_code": 1001, "description": "Widget", "quantity": 10, "unit_price": "$12.50", "total": "$125.00"},
		},
		"subtotal":         "125.00",
		"tax":              "$10.00",
		"total_amount":     "$135.00",
		"manager_approval": "Approved by J. Doe",
	}
}

func TestValidate_StrictSuccess(t *testing.T) {
	inv, warnings, err := schema.Validate(validStrictRecord(), domain.VariantStrict)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "PO-2024-001", inv.PONumber)
	require.NotNil(t, inv.BillingInfo)
	assert.Equal(t, "Acme Corp", inv.BillingInfo.Company)
	assert.Equal(t, "5551234", inv.BillingInfo.Phone)
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "1001", inv.LineItems[0].ItemCode)
	assert.Equal(t, 12.5, *inv.LineItems[0].UnitPrice)
	assert.Equal(t, 125.0, *inv.LineItems[0].Total)
	assert.Equal(t, 135.0, *inv.TotalAmount)
	assert.Equal(t, 10.0, *inv.Tax)
	assert.Nil(t, inv.Shipping)

	text, ok := inv.ManagerApproval.Text()
	assert.True(t, ok)
	assert.Equal(t, "Approved by J. Doe", text)
}

func TestValidate_StrictEmptyRecordNamesFirstRequiredField(t *testing.T) {
	_, _, err := schema.Validate(map[string]any{}, domain.VariantStrict)
	require.Error(t, err)

	var sv *domain.SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "po_number", sv.Field)
	assert.ErrorIs(t, err, domain.ErrSchemaViolation)
}

func TestValidate_StrictNestedRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"billing company", func(r map[string]any) { delete(r["billing_info"].(map[string]any), "company") }, "billing_info.company"},
		{"line item total", func(r map[string]any) {
			delete(r["line_items"].([]any)[0].(map[string]any), "total")
		}, "line_items[0].total"},
		{"unparseable total amount", func(r map[string]any) { r["total_amount"] = "TBD" }, "total_amount"},
		{"blank po number", func(r map[string]any) { r["po_number"] = "  " }, "po_number"},
		{"shipping address without street", func(r map[string]any) {
			r["shipping_info"] = map[string]any{"company": "Acme Warehouse"}
		}, "shipping_info.address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validStrictRecord()
			tt.mutate(rec)
			_, _, err := schema.Validate(rec, domain.VariantStrict)
			var sv *domain.SchemaViolationError
			require.ErrorAs(t, err, &sv)
			assert.Equal(t, tt.field, sv.Field)
		})
	}
}

func TestValidate_StrictTypeMismatch(t *testing.T) {
	rec := validStrictRecord()
	rec["vendor_info"] = "Globex"

	_, _, err := schema.Validate(rec, domain.VariantStrict)
	var sv *domain.SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "vendor_info", sv.Field)
	assert.Contains(t, sv.Reason, "expected")
}

func TestValidate_PartialAcceptsEmptyRecord(t *testing.T) {
	inv, warnings, err := schema.Validate(map[string]any{}, domain.VariantPartial)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, inv.PONumber)
	assert.Nil(t, inv.TotalAmount)
	assert.Nil(t, inv.BillingInfo)
	assert.Empty(t, inv.LineItems)
}

func TestValidate_PartialDropsBadFields(t *testing.T) {
	rec := map[string]any{
		"po_number":   "PO-9",
		"vendor_info": "Globex",
		"line_items": []any{
			map[string]any{"description": "Bolt", "unit_price": "$0.10"},
			"garbage",
		},
	}

	inv, warnings, err := schema.Validate(rec, domain.VariantPartial)
	require.NoError(t, err)

	assert.Equal(t, "PO-9", inv.PONumber)
	assert.Nil(t, inv.VendorInfo)
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "Bolt", inv.LineItems[0].Description)
	assert.Equal(t, 0.1, *inv.LineItems[0].UnitPrice)
	assert.Len(t, warnings, 2)
	joined := strings.Join(warnings, "\n")
	assert.Contains(t, joined, "dropped vendor_info")
	assert.Contains(t, joined, "dropped line_items[1]")

	// input is left untouched
	assert.Equal(t, "Globex", rec["vendor_info"])
}

func TestValidate_AliasesArePromoted(t *testing.T) {
	rec := map[string]any{
		"total": "$50",
		"items": []any{
			map[string]any{"name": "Cable", "price": "5", "amount": "50", "quantity": "10"},
		},
	}

	inv, _, err := schema.Validate(rec, domain.VariantPartial)
	require.NoError(t, err)
	assert.Equal(t, 50.0, *inv.TotalAmount)
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "Cable", inv.LineItems[0].Description)
	assert.Equal(t, 5.0, *inv.LineItems[0].UnitPrice)
	assert.Equal(t, 50.0, *inv.LineItems[0].Total)
	assert.Equal(t, 10.0, *inv.LineItems[0].Quantity)
}

func TestValidate_FreeFormKeepsExtras(t *testing.T) {
	rec := map[string]any{
		"invoice_number": "INV-77",
		"due_date":       "2024-04-01",
		"total":          "1,200.00",
		"manager_approval": map[string]any{
			"approver": "Jane",
			"status":   "approved",
		},
	}

	inv, _, err := schema.Validate(rec, domain.VariantFreeForm)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, *inv.TotalAmount)
	assert.Equal(t, "INV-77", inv.Extras["invoice_number"])
	assert.Equal(t, "2024-04-01", inv.Extras["due_date"])
	assert.NotContains(t, inv.Extras, "total")

	structured, ok := inv.ManagerApproval.Structured()
	require.True(t, ok)
	assert.Equal(t, "Jane", structured["approver"])
}

func TestValidate_PartialDropsExtras(t *testing.T) {
	inv, _, err := schema.Validate(map[string]any{"invoice_number": "INV-1"}, domain.VariantPartial)
	require.NoError(t, err)
	assert.Nil(t, inv.Extras)
}

func TestValidate_UnknownVariant(t *testing.T) {
	_, _, err := schema.Validate(map[string]any{}, domain.Variant("loose"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSchemaViolation)
}

func TestNewValidator(t *testing.T) {
	v, err := schema.NewValidator()
	require.NoError(t, err)

	_, _, err = v.Validate(validStrictRecord(), domain.VariantStrict)
	assert.NoError(t, err)
}

func TestValidate_ModelExtrasKey(t *testing.T) {
	t.Run("partial ignores string extras", func(t *testing.T) {
		inv, _, err := schema.Validate(map[string]any{"po_number": "PO-1", "extras": "see attached"}, domain.VariantPartial)
		require.NoError(t, err)
		assert.Equal(t, "PO-1", inv.PONumber)
		assert.Nil(t, inv.Extras)
	})
	t.Run("partial ignores object extras", func(t *testing.T) {
		inv, _, err := schema.Validate(map[string]any{"extras": map[string]any{"x": 1}}, domain.VariantPartial)
		require.NoError(t, err)
		assert.Nil(t, inv.Extras)
	})
	t.Run("free form keeps it as an unknown key", func(t *testing.T) {
		inv, _, err := schema.Validate(map[string]any{"po_number": "PO-1", "extras": "see attached"}, domain.VariantFreeForm)
		require.NoError(t, err)
		assert.Equal(t, "PO-1", inv.PONumber)
		assert.Equal(t, map[string]any{"extras": "see attached"}, inv.Extras)
	})
}
