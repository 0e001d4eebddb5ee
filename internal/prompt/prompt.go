// Package prompt renders the extraction instructions sent to the model.
package prompt

import (
	"strings"

	"mailparser/internal/domain"
)

// Template selects one of the instruction sets, strictest first.
type Template int

const (
	TemplateStrict Template = iota + 1
	TemplateFlexible
	TemplateFreeForm
)

func (t Template) String() string {
	switch t {
	case TemplateStrict:
		return "strict"
	case TemplateFlexible:
		return "flexible"
	case TemplateFreeForm:
		return "free_form"
	}
	return "unknown"
}

// ForVariant returns the template paired with a validation variant.
func ForVariant(v domain.Variant) Template {
	switch v {
	case domain.VariantStrict:
		return TemplateStrict
	case domain.VariantPartial:
		return TemplateFlexible
	default:
		return TemplateFreeForm
	}
}

const strictInstructions = `You are a purchase order data extraction assistant. Extract the purchase order details from the document below.

RULES:
1. Return ONLY a single valid JSON object. No markdown, no code fences, no explanations.
2. The object must conform exactly to the schema below. Every required field must be present.
3. Numeric values must be plain numbers: remove currency symbols, thousands separators and units (e.g. "$1,234.56" becomes 1234.56).
4. Keep dates exactly as written in the document.
5. Include every line item from every page.

`

const flexibleInstructions = `You are a purchase order data extraction assistant. Extract as much of the purchase order as you can from the document below.

RULES:
1. Return ONLY a single valid JSON object. No markdown, no code fences, no explanations.
2. Follow the schema below, but any field may be omitted or set to null when the document does not state it.
3. Numeric values must be plain numbers: remove currency symbols, thousands separators and units.
4. Do not invent values.

`

const freeFormInstructions = `You will be given raw invoice text. Extract all relevant data as flexible JSON.
Focus on:
- PO number, Invoice number
- Invoice date, PO date, due date, delivery date
- Buyer and Seller company info
- Line items (description, quantity, price, total)
- Totals: subtotal, tax, shipping, total
- Payment terms, notes

Rules:
1. Return ONLY valid JSON
2. Omit missing fields or set as null
3. Remove any currency symbols or commas from numeric values
`

// Build renders the prompt for template t. formatInstructions is embedded
// by the schema-guided templates and ignored by the free-form one. The
// same inputs always produce the same prompt.
func Build(t Template, formatInstructions, documentText string) string {
	var b strings.Builder
	switch t {
	case TemplateStrict:
		b.WriteString(strictInstructions)
		writeSchema(&b, formatInstructions)
	case TemplateFlexible:
		b.WriteString(flexibleInstructions)
		writeSchema(&b, formatInstructions)
	default:
		b.WriteString(freeFormInstructions)
	}
	b.WriteString("\nContent:\n")
	b.WriteString(documentText)
	b.WriteString("\n\nJSON Output:")
	return b.String()
}

func writeSchema(b *strings.Builder, formatInstructions string) {
	if strings.TrimSpace(formatInstructions) == "" {
		return
	}
	b.WriteString(formatInstructions)
	b.WriteString("\n")
}
