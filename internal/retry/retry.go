// Package retry implements the exponential-backoff policy shared by every
// network operation in the installer: at most 3 attempts, delays growing
// 2s, 4s, ... capped at 10s, per spec.md §4.5/§4.6 ("both scrape and
// download operations are wrapped in exponential-backoff retry with at most
// 3 attempts and 2-10s delays"). Grounded on original_source's tenacity
// decorators (stop_after_attempt(3), wait_exponential(multiplier=1, min=2,
// max=10)).
package retry

import (
	"context"
	"time"
)

const (
	MaxAttempts = 3
	minDelay    = 2 * time.Second
	maxDelay    = 10 * time.Second
)

// Do calls fn up to MaxAttempts times, sleeping an exponentially growing
// delay between attempts. It returns the last error if every attempt fails,
// or nil as soon as one succeeds. ctx cancellation aborts the wait between
// attempts immediately.
func Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delayFor(attempt)):
		}
	}
	return lastErr
}

// delayFor returns the backoff delay before the attempt-th retry, doubling
// from minDelay and saturating at maxDelay.
func delayFor(attempt int) time.Duration {
	delay := minDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}
