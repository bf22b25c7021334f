package resilience

import (
	"context"
	"math"
	"time"
)

// ShouldRetry reports whether another attempt is allowed after failedAttempts
// failures under a policy permitting maxRetries retries.
func ShouldRetry(failedAttempts, maxRetries int) bool {
	return failedAttempts <= maxRetries
}

// NextDelay returns min(base * multiplier^(attempt-1), maxDelay) where attempt
// is the 1-based number of the attempt that just failed.
// A non-positive maxDelay disables the cap; a multiplier below 1 is treated as 1.
func NextDelay(attempt int, base time.Duration, multiplier float64, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if multiplier < 1 {
		multiplier = 1
	}

	d := float64(base) * math.Pow(multiplier, float64(attempt-1))
	if maxDelay > 0 && d > float64(maxDelay) {
		return maxDelay
	}
	// Uncapped policies can overflow for large attempt numbers.
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Schedule lists the delays a policy produces for attempts 1..retries.
func Schedule(retries int, base time.Duration, multiplier float64, maxDelay time.Duration) []time.Duration {
	out := make([]time.Duration, 0, retries)
	for i := 1; i <= retries; i++ {
		out = append(out, NextDelay(i, base, multiplier, maxDelay))
	}
	return out
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
