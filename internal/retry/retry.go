// Package retry wraps fallible pipeline stages with bounded, fixed-delay
// retries. Classification of retryable vs fatal is supplied by each call
// site through the domain error wrappers, never hard-coded here.
package retry

import (
	"context"
	"time"

	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

// Operation is one attempt of a fallible stage.
type Operation func(ctx context.Context) error

// Policy executes an operation up to Attempts times, sleeping Delay
// between attempts. The delay is fixed, not exponential, to match the
// configured RETRY_DELAY semantics.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Do runs op until it succeeds, fails fatally, the attempts exhaust, or
// ctx is canceled. Fatal failures abort immediately without consuming
// remaining attempts. The last error is surfaced on exhaustion.
func (p Policy) Do(ctx context.Context, op Operation) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if domain.IsFatal(lastErr) {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
