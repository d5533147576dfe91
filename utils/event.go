package utils

import (
	"context"
	"sync"
)

// Event is a one-shot, wake-all notification. Any number of goroutines may
// block on Wait or select on Done; a single NotifyAll releases every one of
// them, including late arrivals. Notifying twice is a no-op.
type Event struct {
	mu    sync.Mutex
	ch    chan struct{}
	fired bool
}

func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// NotifyAll releases all current and future waiters. Fire-and-forget: it
// does not wait for the waiters to resume.
func (e *Event) NotifyAll() {
	e.mu.Lock()
	if !e.fired {
		e.fired = true
		close(e.ch)
	}
	e.mu.Unlock()
}

// Done returns a channel closed on NotifyAll, for use in select loops.
func (e *Event) Done() <-chan struct{} {
	return e.ch
}

func (e *Event) Fired() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fired
}

// Wait blocks until NotifyAll or context cancellation.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
