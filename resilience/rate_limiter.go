package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned by Execute when no token is available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	Name string
	// Rate is tokens added per second.
	Rate    float64
	Burst   int
	OnLimit func(name string)
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// DefaultRateLimiterConfig returns a gentle limit for outbound webhooks.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{Name: name, Rate: 1, Burst: 5}
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 1
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
		if config.Burst < 1 {
			config.Burst = 1
		}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &RateLimiter{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: config.Now(),
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// Wait blocks until a token is available or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	rl.refill()
	rl.tokens--
	var wait time.Duration
	if rl.tokens < 0 {
		wait = time.Duration(-rl.tokens / rl.config.Rate * float64(time.Second))
	}
	rl.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	if err := Sleep(ctx, wait); err != nil {
		rl.mu.Lock()
		rl.tokens++
		rl.mu.Unlock()
		return err
	}
	return nil
}

// Execute runs fn if a token is available.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// Tokens returns the currently available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) refill() {
	now := rl.config.Now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.config.Rate
	rl.lastRefill = now
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}
