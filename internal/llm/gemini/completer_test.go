package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailparser/internal/config"
	"mailparser/internal/llm"
	"mailparser/internal/llm/gemini"
	"mailparser/internal/port"
)

func newTestCompleter(serverURL string) *gemini.Completer {
	cfg := &config.LLMProviderConfig{
		Provider:    "gemini",
		APIKey:      "test-api-key",
		Model:       "gemini-2.0-flash",
		TimeoutSecs: 5,
	}
	return gemini.NewCompleterWithEndpoint(cfg, serverURL)
}

func TestCompleter_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		genCfg := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, float64(0), genCfg["temperature"])

		contents := reqBody["contents"].([]interface{})
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]interface{})["parts"].([]interface{})
		require.Len(t, parts, 1)
		assert.Equal(t, "prompt text", parts[0].(map[string]interface{})["text"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"total_amount\": 10}"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	out, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Prompt: "prompt text"})

	require.NoError(t, err)
	assert.Equal(t, `{"total_amount": 10}`, out)
}

func TestCompleter_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestCompleter_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{"}]},"finishReason":"MAX_TOKENS"}]}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Prompt: "p"})

	assert.ErrorIs(t, err, llm.ErrTruncated)
}

func TestCompleter_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Prompt: "p"})

	var rl *llm.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "gemini", rl.Provider)
}
