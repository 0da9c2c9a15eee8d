package httputil

import (
	"context"
	"sync/atomic"
)

// Semaphore bounds concurrent calls to a slow collaborator. The pipeline
// uses one to keep a burst of requests from stacking up oracle calls.
type Semaphore struct {
	slots   chan struct{}
	dropped atomic.Int64
}

// NewSemaphore creates a semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 16
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or the context is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire grabs a slot without blocking. A false return counts as a drop.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Release returns a slot. Must pair with a successful Acquire/TryAcquire.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
	}
}

// InUse reports the number of held slots.
func (s *Semaphore) InUse() int { return len(s.slots) }

// Dropped reports how many TryAcquire calls were refused at capacity.
func (s *Semaphore) Dropped() int64 { return s.dropped.Load() }
