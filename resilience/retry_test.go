package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return ctx.Err()
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	var delays []time.Duration
	calls := 0
	got, err := Retry(context.Background(), RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		BackoffFactor:  2,
		MaxBackoff:     time.Minute,
		Sleep:          noSleep(&delays),
	}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("unexpected delays %v", delays)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	want := errors.New("down")
	calls := 0
	err := RetryFunc(context.Background(), RetryConfig{MaxAttempts: 4, Sleep: noSleep(&delays)}, func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
	if len(delays) != 3 {
		t.Errorf("expected 3 sleeps, got %d", len(delays))
	}
}

func TestRetry_RetryIfStops(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	var delays []time.Duration
	err := RetryFunc(context.Background(), RetryConfig{
		MaxAttempts: 5,
		RetryIf:     func(err error) bool { return !errors.Is(err, permanent) },
		Sleep:       noSleep(&delays),
	}, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("expected single call with permanent error, got %d calls, %v", calls, err)
	}
}

func TestRetry_ContextCancelledBeforeCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := RetryFunc(ctx, RetryConfig{}, func() error { calls++; return nil })
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("expected cancellation without calls, got %d calls, %v", calls, err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	var delays []time.Duration
	_ = RetryFunc(context.Background(), RetryConfig{
		MaxAttempts: 3,
		OnRetry:     func(attempt int, _ error, _ time.Duration) { attempts = append(attempts, attempt) },
		Sleep:       noSleep(&delays),
	}, func() error { return errors.New("x") })
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("unexpected callback attempts %v", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(context.Canceled) || DefaultRetryIf(context.DeadlineExceeded) {
		t.Error("context errors must not be retried")
	}
	if !DefaultRetryIf(errors.New("x")) {
		t.Error("plain errors should be retried")
	}
}

func TestJittered_Bounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 100; i++ {
		d := jittered(base, 0.2)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jittered delay %v out of bounds", d)
		}
	}
	if jittered(base, 0) != base {
		t.Error("zero jitter must return the input")
	}
}
