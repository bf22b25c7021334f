package resilience

import (
	"context"
	"errors"
	"time"
)

// Bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// WaitUntilDone makes a bulkhead block until a slot frees or ctx ends.
const WaitUntilDone time.Duration = -1

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	Name          string
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. Zero fails immediately,
	// WaitUntilDone waits for as long as the context allows.
	MaxWait   time.Duration
	OnReject  func(name string)
	OnAcquire func(name string)
	OnRelease func(name string)
}

// Bulkhead limits the number of concurrent executions.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead. MaxConcurrent defaults to 1.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return fn()
}

// Acquire takes a slot according to MaxWait. Every successful Acquire must be
// paired with Release.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	err := b.acquire(ctx)
	if err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return err
	}
	if b.config.OnAcquire != nil {
		b.config.OnAcquire(b.config.Name)
	}
	return nil
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	<-b.sem
	if b.config.OnRelease != nil {
		b.config.OnRelease(b.config.Name)
	}
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	switch {
	case b.config.MaxWait == 0:
		return ErrBulkheadFull
	case b.config.MaxWait < 0:
		select {
		case b.sem <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently held.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the configured limit.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
