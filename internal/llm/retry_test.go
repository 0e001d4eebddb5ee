package llm_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailparser/internal/llm"
	"mailparser/internal/port"
	"mailparser/mocks"
)

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestWithRetry_ZeroRetriesReturnsSame(t *testing.T) {
	c := new(mocks.MockCompleter)
	assert.Same(t, c, llm.WithRetry(c, 0, zerolog.Nop()))
}

func TestWithRetry_RetriesServerErrors(t *testing.T) {
	c := new(mocks.MockCompleter)
	req := port.CompletionRequest{Prompt: "p"}
	c.On("Complete", mock.Anything, req).
		Return("", &llm.StatusError{Provider: "groq", StatusCode: http.StatusBadGateway}).Twice()
	c.On("Complete", mock.Anything, req).Return("done", nil).Once()

	r := llm.WithRetryBackOff(c, 3, zerolog.Nop(), zeroBackOff)

	out, err := r.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "done", out)
	c.AssertNumberOfCalls(t, "Complete", 3)
}

func TestWithRetry_HonorsMaxRetries(t *testing.T) {
	c := new(mocks.MockCompleter)
	req := port.CompletionRequest{Prompt: "p"}
	transport := &llm.TransportError{Provider: "groq", Err: errors.New("connection reset")}
	c.On("Complete", mock.Anything, req).Return("", transport)

	r := llm.WithRetryBackOff(c, 2, zerolog.Nop(), zeroBackOff)

	_, err := r.Complete(context.Background(), req)

	assert.ErrorIs(t, err, transport)
	c.AssertNumberOfCalls(t, "Complete", 3)
}

func TestWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	c := new(mocks.MockCompleter)
	req := port.CompletionRequest{Prompt: "p"}
	c.On("Complete", mock.Anything, req).
		Return("", &llm.StatusError{Provider: "groq", StatusCode: http.StatusUnauthorized})

	r := llm.WithRetryBackOff(c, 5, zerolog.Nop(), zeroBackOff)

	_, err := r.Complete(context.Background(), req)

	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	c.AssertNumberOfCalls(t, "Complete", 1)
}

func TestWithRetry_RateLimitUsesRetryAfter(t *testing.T) {
	c := new(mocks.MockCompleter)
	req := port.CompletionRequest{Prompt: "p"}
	rl := &llm.RateLimitError{Provider: "groq", Err: errors.New("429"), RetryAfter: time.Millisecond}
	c.On("Complete", mock.Anything, req).Return("", rl).Once()
	c.On("Complete", mock.Anything, req).Return("ok", nil).Once()

	r := llm.WithRetryBackOff(c, 1, zerolog.Nop(), zeroBackOff)

	out, err := r.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestWithRetry_ExhaustedRateLimitReturnsRateLimitError(t *testing.T) {
	c := new(mocks.MockCompleter)
	req := port.CompletionRequest{Prompt: "p"}
	rl := &llm.RateLimitError{Provider: "groq", Err: errors.New("429"), RetryAfter: time.Millisecond}
	c.On("Complete", mock.Anything, req).Return("", rl)

	r := llm.WithRetryBackOff(c, 1, zerolog.Nop(), zeroBackOff)

	_, err := r.Complete(context.Background(), req)

	var got *llm.RateLimitError
	require.ErrorAs(t, err, &got)
	assert.Same(t, rl, got)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", llm.NewRateLimitError("groq", errors.New("429"), 1), true},
		{"server error", &llm.StatusError{StatusCode: 503}, true},
		{"bad request", &llm.StatusError{StatusCode: 400}, false},
		{"transport", &llm.TransportError{Err: errors.New("eof")}, true},
		{"truncated", llm.ErrTruncated, false},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("other"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.IsRetryable(tt.err))
		})
	}
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, llm.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, llm.ParseRetryAfterHeader("soon"))
	assert.Equal(t, 12, llm.ParseRetryAfterHeader("12"))
}

func TestNewRateLimitError_DefaultsTo60s(t *testing.T) {
	err := llm.NewRateLimitError("groq", errors.New("429"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
	assert.Contains(t, err.Error(), "groq rate limited")
}
