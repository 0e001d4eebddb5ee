package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mailparser/internal/config"
	"mailparser/internal/llm"
	"mailparser/internal/port"
)

const apiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Completer implements port.Completer using the Gemini generateContent API.
type Completer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewCompleter creates a Gemini completer from a provider config.
func NewCompleter(cfg *config.LLMProviderConfig) *Completer {
	base := apiBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return newCompleter(cfg, base)
}

// NewCompleterWithEndpoint creates a completer pointing at a custom API root (for testing).
func NewCompleterWithEndpoint(cfg *config.LLMProviderConfig, baseURL string) *Completer {
	return newCompleter(cfg, baseURL)
}

func newCompleter(cfg *config.LLMProviderConfig, baseURL string) *Completer {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Completer{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Register adds the gemini factory to the llm provider registry.
func Register() {
	llm.RegisterProvider("gemini", func(cfg *config.LLMProviderConfig) (port.Completer, error) {
		if cfg.APIKey == "" {
			return nil, errors.New("gemini: api key is required")
		}
		return NewCompleter(cfg), nil
	})
}

func (c *Completer) endpoint(model string) string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
}

func (c *Completer) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": req.Prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     req.Temperature,
			"maxOutputTokens": 4096,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &llm.TransportError{Provider: "gemini", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.TransportError{Provider: "gemini", Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := &llm.StatusError{Provider: "gemini", StatusCode: resp.StatusCode, Body: string(respBody)}
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := llm.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return "", llm.NewRateLimitError("gemini", baseErr, retryAfter)
		}
		return "", baseErr
	}

	return parseResponse(respBody)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("empty response from API: no candidates")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == "MAX_TOKENS" {
		return "", fmt.Errorf("gemini: %w (finishReason: MAX_TOKENS)", llm.ErrTruncated)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
