// Package amount turns model-emitted monetary values into plain numbers.
package amount

import (
	"encoding/json"
	"strconv"
	"strings"
)

// TopLevelFields are the record keys whose string values are normalized.
// "total" is accepted as a model-side alias of total_amount.
var TopLevelFields = []string{"subtotal", "tax", "shipping", "total", "total_amount"}

// LineItemFields are the per-item keys whose string values are normalized.
// "price" and "amount" are aliases of unit_price and total.
var LineItemFields = []string{"quantity", "unit_price", "total", "price", "amount"}

// Stripped removes every rune that is not an ASCII digit or '.'.
func Stripped(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FromString strips s and parses the longest leading "digits[.digits]"
// run. It returns nil when no digit survives stripping, so "1.234.56"
// yields 1.234 and "$$$" yields nil.
func FromString(s string) *float64 {
	st := Stripped(s)
	if st == "" {
		return nil
	}

	i := 0
	for i < len(st) && st[i] != '.' {
		i++
	}
	intPart := st[:i]
	end := i
	if i < len(st) {
		j := i + 1
		for j < len(st) && st[j] != '.' {
			j++
		}
		if j > i+1 {
			end = j
		}
	}
	candidate := st[:end]
	if intPart == "" && end == i {
		return nil
	}
	if intPart == "" {
		candidate = "0" + candidate
	}

	f, err := strconv.ParseFloat(candidate, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Normalize converts v to a number. Numbers pass through unchanged,
// strings go through FromString, and anything else yields nil.
func Normalize(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return FromString(string(x))
		}
		f = parsed
	case string:
		return FromString(x)
	default:
		return nil
	}
	return &f
}

// NormalizeRecord returns a copy of rec with every string amount in
// TopLevelFields and in each line item's LineItemFields replaced by its
// normalized number, or nil when nothing numeric remains. Non-string
// values are left for the schema layer to judge.
func NormalizeRecord(rec map[string]any) map[string]any {
	if rec == nil {
		return nil
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	normalizeFields(out, TopLevelFields)

	items, ok := out["line_items"].([]any)
	if !ok {
		return out
	}
	copied := make([]any, len(items))
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			copied[i] = raw
			continue
		}
		itemCopy := make(map[string]any, len(item))
		for k, v := range item {
			itemCopy[k] = v
		}
		normalizeFields(itemCopy, LineItemFields)
		copied[i] = itemCopy
	}
	out["line_items"] = copied
	return out
}

func normalizeFields(m map[string]any, fields []string) {
	for _, field := range fields {
		s, ok := m[field].(string)
		if !ok {
			continue
		}
		if f := FromString(s); f != nil {
			m[field] = *f
		} else {
			m[field] = nil
		}
	}
}
