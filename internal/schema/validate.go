package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"mailparser/internal/amount"
	"mailparser/internal/domain"
)

// maxDrops bounds how many fields a lenient validation may discard.
const maxDrops = 64

var knownTopFields = func() map[string]bool {
	m := map[string]bool{"line_items": true, "manager_approval": true}
	for _, group := range [][]string{topTextFields, topNumberFields, addressFields, objectFields} {
		for _, f := range group {
			m[f] = true
		}
	}
	return m
}()

// Validator checks parsed records against the compiled variant schemas.
type Validator struct {
	compiled map[domain.Variant]*jsonschema.Schema
}

// NewValidator compiles the schema document of every variant.
func NewValidator() (*Validator, error) {
	v := &Validator{compiled: make(map[domain.Variant]*jsonschema.Schema, 3)}
	for _, variant := range []domain.Variant{domain.VariantStrict, domain.VariantPartial, domain.VariantFreeForm} {
		s, err := compile(variant)
		if err != nil {
			return nil, fmt.Errorf("schema.NewValidator: %s: %w", variant, err)
		}
		v.compiled[variant] = s
	}
	return v, nil
}

func compile(variant domain.Variant) (*jsonschema.Schema, error) {
	b, err := json.Marshal(Document(variant))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := string(variant) + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Validate checks rec with a shared Validator. See Validator.Validate.
func Validate(rec map[string]any, variant domain.Variant) (*domain.StructuredInvoice, []string, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	if defaultErr != nil {
		return nil, nil, defaultErr
	}
	return defaultValidator.Validate(rec, variant)
}

// Validate promotes known aliases, normalizes amounts, and checks rec
// against the variant schema.
//
// Strict reports the first offending field as a *domain.SchemaViolationError.
// Partial and FreeForm drop offending fields and report each drop as a
// warning; FreeForm additionally keeps unknown keys in Extras.
// The input map is never modified.
func (v *Validator) Validate(rec map[string]any, variant domain.Variant) (*domain.StructuredInvoice, []string, error) {
	sch, ok := v.compiled[variant]
	if !ok {
		return nil, nil, fmt.Errorf("schema.Validate: unknown variant %q", variant)
	}

	work, err := canonical(rec)
	if err != nil {
		return nil, nil, domain.NewSchemaViolation("", err.Error())
	}
	promoteAliases(work)
	work = amount.NormalizeRecord(work)
	coerceText(work)

	var warnings []string
	if variant == domain.VariantStrict {
		if err := checkRequired(work); err != nil {
			return nil, nil, err
		}
		if err := sch.Validate(work); err != nil {
			path, reason := leafCause(err)
			return nil, nil, domain.NewSchemaViolation(fieldPath(path), reason)
		}
	} else {
		for drops := 0; ; drops++ {
			err := sch.Validate(work)
			if err == nil {
				break
			}
			path, reason := leafCause(err)
			if len(path) == 0 || drops >= maxDrops {
				return nil, nil, domain.NewSchemaViolation(fieldPath(path), reason)
			}
			updated, dropped := dropPath(work, path)
			if !dropped {
				return nil, nil, domain.NewSchemaViolation(fieldPath(path), reason)
			}
			work = updated.(map[string]any)
			warnings = append(warnings, fmt.Sprintf("dropped %s: %s", fieldPath(path), reason))
		}
	}

	inv, err := decode(work, variant == domain.VariantFreeForm)
	if err != nil {
		return nil, nil, err
	}
	return inv, warnings, nil
}

// canonical deep-copies rec into the plain JSON value types the schema
// validator accepts.
func canonical(rec map[string]any) (map[string]any, error) {
	if rec == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("record is not JSON-encodable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}
	return out, nil
}

// promoteAliases renames common model-side synonyms to canonical keys
// when the canonical key is absent.
func promoteAliases(work map[string]any) {
	promote(work, "total", "total_amount")
	promote(work, "items", "line_items")

	items, ok := work["line_items"].([]any)
	if !ok {
		return
	}
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		promote(item, "price", "unit_price")
		promote(item, "amount", "total")
		promote(item, "name", "description")
	}
}

func promote(m map[string]any, alias, canonical string) {
	if _, has := m[canonical]; has {
		return
	}
	if v, ok := m[alias]; ok {
		m[canonical] = v
		delete(m, alias)
	}
}

// coerceText renders numbers and booleans in text fields as strings.
func coerceText(work map[string]any) {
	coerceFields(work, topTextFields)
	for _, f := range addressFields {
		if addr, ok := work[f].(map[string]any); ok {
			coerceFields(addr, addressTextFields)
		}
	}
	if items, ok := work["line_items"].([]any); ok {
		for _, raw := range items {
			if item, ok := raw.(map[string]any); ok {
				coerceFields(item, itemTextFields)
			}
		}
	}
}

func coerceFields(m map[string]any, fields []string) {
	for _, f := range fields {
		switch x := m[f].(type) {
		case float64:
			m[f] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			m[f] = strconv.FormatBool(x)
		}
	}
}

// checkRequired walks the strict required set in declaration order and
// reports the first missing field. Blank strings count as missing.
func checkRequired(work map[string]any) error {
	for _, f := range requiredTop {
		if isMissing(work[f]) {
			return domain.NewSchemaViolation(f, "required field is missing")
		}
		switch f {
		case "billing_info":
			if err := checkAddress(f, work[f]); err != nil {
				return err
			}
		case "line_items":
			items, ok := work[f].([]any)
			if !ok {
				continue
			}
			for i, raw := range items {
				item, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				for _, k := range requiredItem {
					if isMissing(item[k]) {
						return domain.NewSchemaViolation(fmt.Sprintf("line_items[%d].%s", i, k), "required field is missing")
					}
				}
			}
		}
	}
	return checkAddress("shipping_info", work["shipping_info"])
}

func checkAddress(name string, v any) error {
	addr, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	for _, k := range requiredAddress {
		if isMissing(addr[k]) {
			return domain.NewSchemaViolation(name+"."+k, "required field is missing")
		}
	}
	return nil
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// leafCause returns the instance path and message of the deepest first cause.
func leafCause(err error) ([]string, string) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return splitPointer(ve.InstanceLocation), ve.Message
}

func splitPointer(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	segs := strings.Split(ptr, "/")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~1", "/")
		segs[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return segs
}

// fieldPath renders instance path segments as "a.b[0].c".
func fieldPath(segs []string) string {
	var b strings.Builder
	for i, s := range segs {
		if _, err := strconv.Atoi(s); err == nil && i > 0 {
			b.WriteString("[" + s + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}

// dropPath removes the value at segs, returning the updated node.
func dropPath(node any, segs []string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		child, ok := n[segs[0]]
		if !ok {
			return n, false
		}
		if len(segs) == 1 {
			delete(n, segs[0])
			return n, true
		}
		updated, dropped := dropPath(child, segs[1:])
		n[segs[0]] = updated
		return n, dropped
	case []any:
		idx, err := strconv.Atoi(segs[0])
		if err != nil || idx < 0 || idx >= len(n) {
			return n, false
		}
		if len(segs) == 1 {
			return append(n[:idx:idx], n[idx+1:]...), true
		}
		updated, dropped := dropPath(n[idx], segs[1:])
		n[idx] = updated
		return n, dropped
	}
	return node, false
}

// extrasKey is the StructuredInvoice field holding unknown keys. A model
// emitting the same key is treated as any other unknown key.
const extrasKey = "extras"

func decode(work map[string]any, keepExtras bool) (*domain.StructuredInvoice, error) {
	known := make(map[string]any, len(work))
	for k, v := range work {
		if k != extrasKey {
			known[k] = v
		}
	}
	b, err := json.Marshal(known)
	if err != nil {
		return nil, fmt.Errorf("schema.decode: %w", err)
	}
	var inv domain.StructuredInvoice
	if err := json.Unmarshal(b, &inv); err != nil {
		return nil, domain.NewSchemaViolation("", err.Error())
	}
	if inv.LineItems == nil {
		inv.LineItems = []domain.LineItem{}
	}
	if keepExtras {
		for k, v := range work {
			if knownTopFields[k] {
				continue
			}
			if inv.Extras == nil {
				inv.Extras = map[string]any{}
			}
			inv.Extras[k] = v
		}
	}
	return &inv, nil
}
