// Package jsonextract pulls a single JSON object out of free-form model output.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"strings"

	"mailparser/internal/domain"
)

// Extract locates the span from the first '{' to the last '}' in text,
// parses it, and requires the result to be a JSON object.
func Extract(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyModelOutput
	}

	candidate, err := Candidate(text)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidJSONSyntax, err.Error())
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", domain.ErrUnexpectedJSONShape, v)
	}
	return obj, nil
}

// Candidate returns the substring between the first '{' and the last '}'
// inclusive, without parsing it.
func Candidate(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return "", domain.ErrNoJSONFound
	}
	return text[start : end+1], nil
}
