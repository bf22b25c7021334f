package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrMaxRetriesExceeded is returned when MaxAttempts is zero after defaults.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// RetryConfig configures a transport-level retry loop.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	// Jitter spreads each delay by up to +/- Jitter*delay (0.0 to 1.0).
	Jitter  float64
	RetryIf func(error) bool
	OnRetry func(attempt int, err error, backoff time.Duration)
	// Sleep replaces the context-aware wait; tests use it to skip real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns defaults suited to short network calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (cfg *RetryConfig) applyDefaults() {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}
}

// Retry calls fn until it succeeds, RetryIf rejects the error, attempts run
// out, or ctx ends. The last error is returned on exhaustion.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	cfg.applyDefaults()

	lastErr := ErrMaxRetriesExceeded
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := jittered(NextDelay(attempt, cfg.InitialBackoff, cfg.BackoffFactor, cfg.MaxBackoff), cfg.Jitter)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}
		if err := cfg.Sleep(ctx, backoff); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// RetryFunc is Retry for functions that return only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func jittered(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || d <= 0 {
		return d
	}
	if jitter > 1 {
		jitter = 1
	}
	spread := float64(d) * jitter
	out := float64(d) + (rand.Float64()*2-1)*spread
	if out < 0 {
		return d
	}
	return time.Duration(out)
}
