package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"mailparser/internal/config"
	"mailparser/internal/llm"
	"mailparser/internal/port"
)

const (
	// GroqBaseURL is Groq's OpenAI-compatible API root.
	GroqBaseURL = "https://api.groq.com/openai/v1"

	defaultOpenAIModel = "gpt-4o"
	defaultGroqModel   = "llama3-70b-8192"
	maxTokens          = 4096
)

// Completer implements port.Completer over any OpenAI-compatible chat completions API.
type Completer struct {
	client   *goopenai.Client
	model    string
	provider string
}

// NewCompleter creates an OpenAI completer from a provider config.
func NewCompleter(cfg *config.LLMProviderConfig) *Completer {
	return newCompleter(cfg, cfg.BaseURL, "openai", defaultOpenAIModel)
}

// NewGroqCompleter creates a completer for Groq's OpenAI-compatible endpoint.
func NewGroqCompleter(cfg *config.LLMProviderConfig) *Completer {
	base := cfg.BaseURL
	if base == "" {
		base = GroqBaseURL
	}
	return newCompleter(cfg, base, "groq", defaultGroqModel)
}

// NewCompleterWithEndpoint creates a completer pointing at a custom API root (for testing).
func NewCompleterWithEndpoint(cfg *config.LLMProviderConfig, baseURL string) *Completer {
	return newCompleter(cfg, baseURL, cfg.Provider, defaultOpenAIModel)
}

func newCompleter(cfg *config.LLMProviderConfig, baseURL, provider, defaultModel string) *Completer {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	if provider == "" {
		provider = "openai"
	}
	return &Completer{
		client:   goopenai.NewClientWithConfig(clientCfg),
		model:    model,
		provider: provider,
	}
}

// Register adds the openai and groq factories to the llm provider registry.
func Register() {
	llm.RegisterProvider("openai", func(cfg *config.LLMProviderConfig) (port.Completer, error) {
		if cfg.APIKey == "" {
			return nil, errors.New("openai: api key is required")
		}
		return NewCompleter(cfg), nil
	})
	llm.RegisterProvider("groq", func(cfg *config.LLMProviderConfig) (port.Completer, error) {
		if cfg.APIKey == "" {
			return nil, errors.New("groq: api key is required")
		}
		return NewGroqCompleter(cfg), nil
	})
}

func (c *Completer) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: temperature(req.Temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", c.classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s API: no choices", c.provider)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == goopenai.FinishReasonLength {
		return "", fmt.Errorf("%s: %w (finish_reason: length)", c.provider, llm.ErrTruncated)
	}
	return choice.Message.Content, nil
}

// temperature maps zero to the smallest positive float32; the client drops a literal zero.
func temperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (c *Completer) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return c.statusError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return c.statusError(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}
	return &llm.TransportError{Provider: c.provider, Err: err}
}

func (c *Completer) statusError(code int, body string, cause error) error {
	base := &llm.StatusError{Provider: c.provider, StatusCode: code, Body: body}
	if code == http.StatusTooManyRequests {
		return llm.NewRateLimitError(c.provider, fmt.Errorf("%w: %v", base, cause), 0)
	}
	return base
}
