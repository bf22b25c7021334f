package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	limited := 0
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2, Now: clock.Now, OnLimit: func(string) { limited++ }})

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst should allow two calls")
	}
	if rl.Allow() {
		t.Fatal("third call should be limited")
	}
	if limited != 1 {
		t.Errorf("expected OnLimit once, got %d", limited)
	}

	clock.Advance(time.Second)
	if !rl.Allow() {
		t.Error("expected a token after one second")
	}
}

func TestRateLimiter_Execute(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Now: clock.Now})
	if err := rl.Execute(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rl.Execute(func() error { return nil }); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_WaitCancelledReturnsToken(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1, Now: clock.Now})
	_ = rl.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
	if tokens := rl.Tokens(); tokens < -0.0001 || tokens > 0.0001 {
		t.Errorf("expected reserved token to be returned, got %v", tokens)
	}
}

func TestRateLimiter_WaitImmediate(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig("webhook"))
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
