package amount_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailparser/internal/amount"
)

func TestFromString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{"currency and thousands separator", "$1,234.56", ptr(1234.56)},
		{"rupee zero", "₹0", ptr(0)},
		{"only symbols", "$$$", nil},
		{"empty", "", nil},
		{"lone dot", ".", nil},
		{"multiple dots keeps first number", "1.234.56", ptr(1.234)},
		{"leading dot", ".5", ptr(0.5)},
		{"trailing dot", "5.", ptr(5)},
		{"negative sign is stripped", "-12.50", ptr(12.5)},
		{"words around number", "USD 99 only", ptr(99)},
		{"european style", "1.234,56", ptr(1.23456)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amount.FromString(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestNormalize_PassesNumbersThrough(t *testing.T) {
	got := amount.Normalize(42.5)
	require.NotNil(t, got)
	assert.Equal(t, 42.5, *got)

	got = amount.Normalize(7)
	require.NotNil(t, got)
	assert.Equal(t, 7.0, *got)

	got = amount.Normalize(json.Number("19.99"))
	require.NotNil(t, got)
	assert.Equal(t, 19.99, *got)
}

func TestNormalize_NonNumericTypes(t *testing.T) {
	assert.Nil(t, amount.Normalize(nil))
	assert.Nil(t, amount.Normalize(true))
	assert.Nil(t, amount.Normalize(map[string]any{"v": 1}))
	assert.Nil(t, amount.Normalize([]any{1}))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []any{"$1,234.56", "1.234.56", "₹0", 12.0, "abc"}
	for _, in := range inputs {
		first := amount.Normalize(in)
		var second *float64
		if first != nil {
			second = amount.Normalize(*first)
		}
		if first == nil {
			assert.Nil(t, second, "input %v", in)
			continue
		}
		require.NotNil(t, second, "input %v", in)
		assert.Equal(t, *first, *second, "input %v", in)
	}
}

func TestStripped(t *testing.T) {
	assert.Equal(t, "1234.56", amount.Stripped("$1,234.56"))
	assert.Equal(t, "", amount.Stripped("n/a"))
}

func TestNormalizeRecord(t *testing.T) {
	rec := map[string]any{
		"po_number":    "PO-1",
		"subtotal":     "$1,000.00",
		"tax":          "80",
		"shipping":     "free",
		"total_amount": 1080.0,
		"line_items": []any{
			map[string]any{"description": "Widget", "quantity": "10 pcs", "unit_price": "$100", "total": "$1,000.00"},
			map[string]any{"description": "Gadget", "price": "€5,00"},
			"not an item",
		},
	}

	out := amount.NormalizeRecord(rec)

	assert.Equal(t, "PO-1", out["po_number"])
	assert.Equal(t, 1000.0, out["subtotal"])
	assert.Equal(t, 80.0, out["tax"])
	assert.Nil(t, out["shipping"])
	assert.Equal(t, 1080.0, out["total_amount"])

	items := out["line_items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, 10.0, first["quantity"])
	assert.Equal(t, 100.0, first["unit_price"])
	assert.Equal(t, 1000.0, first["total"])
	second := items[1].(map[string]any)
	assert.Equal(t, 500.0, second["price"])
	assert.Equal(t, "not an item", items[2])

	// input is not mutated
	assert.Equal(t, "$1,000.00", rec["subtotal"])
	assert.Equal(t, "$100", rec["line_items"].([]any)[0].(map[string]any)["unit_price"])
}

func TestNormalizeRecord_LeavesNonStringsAlone(t *testing.T) {
	rec := map[string]any{"total_amount": map[string]any{"value": "10"}}
	out := amount.NormalizeRecord(rec)
	assert.Equal(t, map[string]any{"value": "10"}, out["total_amount"])
	assert.Nil(t, amount.NormalizeRecord(nil))
}

func ptr(v float64) *float64 { return &v }
