// Package schema holds the purchase-order record schemas and validates
// parsed model output against them.
package schema

import (
	"encoding/json"

	"mailparser/internal/domain"
)

// Field groups used by coercion, required checks, and decoding.
var (
	topTextFields     = []string{"po_number", "po_date", "tax_rate", "payment_terms", "delivery_date", "special_instructions", "budget_code"}
	topNumberFields   = []string{"subtotal", "tax", "shipping", "total_amount"}
	addressFields     = []string{"billing_info", "shipping_info"}
	addressTextFields = []string{"company", "contact_person", "email", "phone", "address", "attention"}
	itemTextFields    = []string{"item_code", "description"}
	itemNumberFields  = []string{"quantity", "unit_price", "total"}
	objectFields      = []string{"vendor_info", "buyer_info"}

	requiredTop     = []string{"po_number", "po_date", "billing_info", "line_items", "total_amount"}
	requiredAddress = []string{"company", "address"}
	requiredItem    = []string{"description", "quantity", "unit_price", "total"}
)

var descriptions = map[string]string{
	"po_number":            "Purchase order number",
	"po_date":              "Purchase order date as written on the document",
	"billing_info":         "Bill-to party",
	"shipping_info":        "Ship-to party",
	"line_items":           "Ordered items",
	"subtotal":             "Sum of line totals before tax and shipping",
	"tax":                  "Tax amount",
	"tax_rate":             "Tax rate percentage",
	"shipping":             "Shipping charge",
	"total_amount":         "Grand total",
	"payment_terms":        "Payment terms, e.g. Net 30",
	"delivery_date":        "Requested delivery date",
	"special_instructions": "Any special handling or delivery instructions",
	"manager_approval":     "Approval note, or an object with approver details",
	"budget_code":          "Budget or cost-center code",
	"vendor_info":          "Vendor information",
	"buyer_info":           "Buyer information",
	"company":              "Company name",
	"contact_person":       "Contact person name",
	"email":                "Contact email",
	"phone":                "Contact phone number",
	"address":              "Postal address",
	"attention":            "Attention line",
	"item_code":            "Item code or SKU",
	"description":          "Item description",
	"quantity":             "Ordered quantity",
	"unit_price":           "Price per unit",
	"total":                "Line total",
}

// Document returns the JSON Schema of the record for the given variant.
// Strict carries required lists and non-null types for required fields;
// Partial and FreeForm make every field optional and nullable.
func Document(v domain.Variant) map[string]any {
	strict := v == domain.VariantStrict

	props := map[string]any{}
	for _, f := range topTextFields {
		props[f] = prop(f, "string", strict && contains(requiredTop, f))
	}
	for _, f := range topNumberFields {
		props[f] = prop(f, "number", strict && contains(requiredTop, f))
	}
	for _, f := range addressFields {
		props[f] = addressDocument(f, strict, strict && contains(requiredTop, f))
	}
	for _, f := range objectFields {
		props[f] = prop(f, "object", false)
	}
	props["manager_approval"] = map[string]any{
		"type":        []any{"string", "object", "null"},
		"description": descriptions["manager_approval"],
	}
	props["line_items"] = lineItemsDocument(strict)

	doc := map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties":           props,
	}
	if strict {
		doc["required"] = toAny(requiredTop)
	}
	return doc
}

// FormatInstructions renders the variant's schema as indented JSON for prompts.
func FormatInstructions(v domain.Variant) string {
	b, err := json.MarshalIndent(Document(v), "", "  ")
	if err != nil {
		return ""
	}
	return "The output must be a JSON object that conforms to this JSON Schema:\n" + string(b)
}

func addressDocument(name string, strict, required bool) map[string]any {
	props := map[string]any{}
	for _, f := range addressTextFields {
		props[f] = prop(f, "string", strict && contains(requiredAddress, f))
	}
	doc := map[string]any{
		"type":        nullable("object", required),
		"description": descriptions[name],
		"properties":  props,
	}
	if strict {
		doc["required"] = toAny(requiredAddress)
	}
	return doc
}

func lineItemsDocument(strict bool) map[string]any {
	props := map[string]any{}
	for _, f := range itemTextFields {
		props[f] = prop(f, "string", strict && contains(requiredItem, f))
	}
	for _, f := range itemNumberFields {
		props[f] = prop(f, "number", strict && contains(requiredItem, f))
	}
	item := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if strict {
		item["required"] = toAny(requiredItem)
	}
	return map[string]any{
		"type":        nullable("array", strict),
		"description": descriptions["line_items"],
		"items":       item,
	}
}

func prop(name, typ string, required bool) map[string]any {
	return map[string]any{
		"type":        nullable(typ, required),
		"description": descriptions[name],
	}
}

func nullable(typ string, required bool) any {
	if required {
		return typ
	}
	return []any{typ, "null"}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toAny(list []string) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v
	}
	return out
}
