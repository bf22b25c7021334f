package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBulkhead_BoundsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "tasks", MaxConcurrent: 2, MaxWait: WaitUntilDone})

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func() error {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds limit 2", peak)
	}
	if b.InUse() != 0 || b.Available() != 2 {
		t.Errorf("slots leaked: in use %d, available %d", b.InUse(), b.Available())
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer b.Release()

	rejected := false
	b.config.OnReject = func(string) { rejected = true }
	if err := b.Execute(context.Background(), func() error { return nil }); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if !rejected {
		t.Error("expected OnReject to fire")
	}
}

func TestBulkhead_TimesOutWaiting(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	_ = b.Acquire(context.Background())
	defer b.Release()

	if err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestBulkhead_WaitUntilDone_Cancelled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: WaitUntilDone})
	_ = b.Acquire(context.Background())
	defer b.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestBulkhead_CancelledContextNeverAcquires(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if b.InUse() != 0 {
		t.Error("no slot should be held")
	}
}

func TestBulkhead_Callbacks(t *testing.T) {
	var acquired, released int
	b := NewBulkhead(BulkheadConfig{
		MaxConcurrent: 1,
		OnAcquire:     func(string) { acquired++ },
		OnRelease:     func(string) { released++ },
	})
	_ = b.Execute(context.Background(), func() error { return nil })
	if acquired != 1 || released != 1 {
		t.Errorf("acquired=%d released=%d", acquired, released)
	}
}

func TestNewBulkhead_DefaultLimit(t *testing.T) {
	if NewBulkhead(BulkheadConfig{}).MaxConcurrent() != 1 {
		t.Error("expected default limit of 1")
	}
}
