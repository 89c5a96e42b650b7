// Package retry is a small bounded-backoff policy for transient storage
// errors. Writes go through it only when the operation re-checks state before
// re-attempting; blind re-execution of a debit is never safe.
package retry

import (
	"context"
	"time"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
}

// DefaultPolicy mirrors the three-attempt exponential pattern used on read
// paths throughout the service.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, Factor: 2}
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is cancelled. retryable decides which errors are worth
// another attempt; a nil retryable retries everything.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := policy.BaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Factor)
	}
	return err
}
