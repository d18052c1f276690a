package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to attempts times.
// If fn returns nil (success) it stops immediately.
// If fn keeps failing, it waits longer each attempt (exponential backoff)
// and returns the last error after all attempts are exhausted.
//
// EXPONENTIAL BACKOFF means, with base = 1s:
//
//	attempt 1 fails → wait 2 seconds
//	attempt 2 fails → wait 4 seconds
//	attempt 3 fails → wait 8 seconds
//
// attempts = 1 runs fn once and never sleeps. A cancelled ctx stops the wait
// and returns the context error.
//
// Usage:
//
//	err := utils.Retry(ctx, 3, time.Second, func() error {
//	    return fetcher.Fetch(ctx, url)
//	})
func Retry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempts == 1 {
			return lastErr
		}

		if attempt < attempts {
			wait := base * time.Duration(1<<uint(attempt))
			Warn("Attempt %d/%d failed: %v — retrying in %v", attempt, attempts, lastErr, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("all %d attempts failed — last error: %w", attempts, lastErr)
}
