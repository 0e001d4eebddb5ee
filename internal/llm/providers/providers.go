// Package providers registers every built-in completion adapter with the llm registry.
package providers

import (
	"sync"

	"mailparser/internal/llm/claude"
	"mailparser/internal/llm/gemini"
	"mailparser/internal/llm/openai"
)

var once sync.Once

// RegisterAll registers the openai, groq, claude and gemini factories. Safe to call repeatedly.
func RegisterAll() {
	once.Do(func() {
		openai.Register()
		claude.Register()
		gemini.Register()
	})
}
