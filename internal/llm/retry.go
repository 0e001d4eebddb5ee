package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"mailparser/internal/port"
)

// retryCompleter repeats transient completion failures with exponential backoff.
type retryCompleter struct {
	next       port.Completer
	maxRetries int
	log        zerolog.Logger
	newBackOff func() backoff.BackOff
}

// WithRetry wraps c so that rate limits, 5xx replies and transport errors are
// retried up to maxRetries times. maxRetries <= 0 returns c unchanged.
func WithRetry(c port.Completer, maxRetries int, logger zerolog.Logger) port.Completer {
	return withRetry(c, maxRetries, logger, func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 500 * time.Millisecond
		b.MaxInterval = 30 * time.Second
		b.MaxElapsedTime = 2 * time.Minute
		return b
	})
}

func withRetry(c port.Completer, maxRetries int, logger zerolog.Logger, newBackOff func() backoff.BackOff) port.Completer {
	if maxRetries <= 0 {
		return c
	}
	return &retryCompleter{next: c, maxRetries: maxRetries, log: logger, newBackOff: newBackOff}
}

func (r *retryCompleter) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	var out string
	op := func() error {
		res, err := r.next.Complete(ctx, req)
		if err == nil {
			out = res
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			return &waitHint{err: err, wait: rl.RetryAfter}
		}
		return err
	}

	b := &hintedBackOff{BackOff: backoff.WithMaxRetries(r.newBackOff(), uint64(r.maxRetries))}
	notify := func(err error, wait time.Duration) {
		r.log.Warn().Err(err).Dur("wait", wait).Msg("llm.WithRetry: retrying completion")
	}
	err := backoff.RetryNotify(func() error {
		err := op()
		b.record(err)
		return err
	}, backoff.WithContext(b, ctx), notify)
	if err != nil {
		var hint *waitHint
		if errors.As(err, &hint) {
			return "", hint.err
		}
		return "", err
	}
	return out, nil
}

// waitHint carries a server-requested delay through the backoff loop.
type waitHint struct {
	err  error
	wait time.Duration
}

func (w *waitHint) Error() string { return w.err.Error() }
func (w *waitHint) Unwrap() error { return w.err }

// hintedBackOff uses the server's Retry-After delay when one was given,
// capped by the wrapped policy's maximum.
type hintedBackOff struct {
	backoff.BackOff
	hint time.Duration
}

const maxHintedWait = time.Minute

func (h *hintedBackOff) record(err error) {
	h.hint = 0
	var w *waitHint
	if errors.As(err, &w) {
		h.hint = w.wait
	}
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	next := h.BackOff.NextBackOff()
	if next == backoff.Stop || h.hint == 0 {
		return next
	}
	if h.hint > maxHintedWait {
		return maxHintedWait
	}
	return h.hint
}
