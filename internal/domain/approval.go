package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Approval is either a free-text approval note or a structured approval
// record (approver, date, status...). Exactly one form is populated.
type Approval struct {
	text       string
	structured map[string]any
	isStruct   bool
}

// TextApproval creates a free-text approval.
func TextApproval(s string) *Approval {
	return &Approval{text: s}
}

// StructuredApproval creates a structured approval from a decoded object.
func StructuredApproval(m map[string]any) *Approval {
	if m == nil {
		m = map[string]any{}
	}
	return &Approval{structured: m, isStruct: true}
}

// IsStructured reports whether the approval carries a structured record.
func (a *Approval) IsStructured() bool {
	return a.isStruct
}

// Text returns the free-text form and whether it is populated.
func (a *Approval) Text() (string, bool) {
	return a.text, !a.isStruct
}

// Structured returns the structured form and whether it is populated.
func (a *Approval) Structured() (map[string]any, bool) {
	return a.structured, a.isStruct
}

// String renders the approval for flat outputs such as CSV cells.
func (a *Approval) String() string {
	if a == nil {
		return ""
	}
	if !a.isStruct {
		return a.text
	}
	b, err := json.Marshal(a.structured)
	if err != nil {
		return ""
	}
	return string(b)
}

func (a Approval) MarshalJSON() ([]byte, error) {
	if a.isStruct {
		return json.Marshal(a.structured)
	}
	return json.Marshal(a.text)
}

func (a *Approval) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("approval: empty value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("approval: %w", err)
		}
		*a = Approval{text: s}
		return nil
	case '{':
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("approval: %w", err)
		}
		*a = Approval{structured: m, isStruct: true}
		return nil
	default:
		return fmt.Errorf("approval: expected string or object, got %s", string(data))
	}
}
