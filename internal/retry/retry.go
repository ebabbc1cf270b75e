// Package retry implements the bounded-backoff policy injected into the
// services that talk to external APIs.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds repeated attempts of a fallible operation.
// Delays grow exponentially: BaseDelay, 2*BaseDelay, 4*BaseDelay, ...
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration
}

// Do runs op up to MaxAttempts times. A nil error stops immediately.
// A non-nil error is retried only while retryable reports it as transient;
// permanent errors are returned as-is. Cancellation is honored between
// attempts, so a stuck backoff never outlives the caller.
func (p Policy) Do(ctx context.Context, op func(attempt int) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := p.wait(ctx, attempt); err != nil {
				return err
			}
		}

		err := op(attempt)
		if err == nil {
			return nil
		}

		if retryable != nil && !retryable(err) {
			return err
		}

		lastErr = err
	}

	return lastErr
}

// wait sleeps for the backoff delay preceding the given attempt,
// returning early if the context is cancelled.
func (p Policy) wait(ctx context.Context, attempt int) error {
	delay := p.BaseDelay
	if delay <= 0 {
		return ctx.Err()
	}

	delay *= time.Duration(1) << (attempt - 2)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry aborted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
