// Package voice is the adapter for the voice-call provider: a JSON REST
// client plus the in-process throttle protecting the provider's API.
package voice

import (
	"context"
	"sync"
	"time"
)

// Throttle bounds concurrent outbound requests to the provider and inserts
// a fixed cool-down between dispatches. It is a plain FIFO queue with an
// active counter, not a token bucket: a task runs only while fewer than
// maxConcurrent tasks are in flight, and each slot is held through the
// cool-down after its task settles.
//
// Single-process only. Running multiple instances of this service would
// need the limit moved to a shared store.
type Throttle struct {
	mu     sync.Mutex
	queue  []func()
	active int

	maxConcurrent int
	delay         time.Duration

	// OnDepth, when set, observes queue/active levels after every change.
	// Used for gauge instrumentation; must not block.
	OnDepth func(queued, active int)
}

const (
	defaultMaxConcurrent = 2
	defaultDispatchDelay = 500 * time.Millisecond
)

func NewThrottle(maxConcurrent int, delay time.Duration) *Throttle {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if delay < 0 {
		delay = defaultDispatchDelay
	}
	return &Throttle{maxConcurrent: maxConcurrent, delay: delay}
}

// Do enqueues fn and blocks until it settles or ctx is done. A task error
// propagates only to its own caller; the rest of the queue is unaffected.
// When ctx is canceled while the task is still queued or running, Do
// returns early but the task itself is not revoked.
func (t *Throttle) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)

	t.mu.Lock()
	t.queue = append(t.queue, func() {
		done <- fn()
	})
	t.observeLocked()
	t.mu.Unlock()

	t.pump()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pump starts the next queued task if a slot is free.
func (t *Throttle) pump() {
	t.mu.Lock()
	if t.active >= t.maxConcurrent || len(t.queue) == 0 {
		t.mu.Unlock()
		return
	}
	task := t.queue[0]
	t.queue = t.queue[1:]
	t.active++
	t.observeLocked()
	t.mu.Unlock()

	go func() {
		task()
		// Hold the slot through the cool-down so the dispatch rate stays
		// bounded even when the queue is saturated.
		if t.delay > 0 {
			time.Sleep(t.delay)
		}
		t.mu.Lock()
		t.active--
		t.observeLocked()
		t.mu.Unlock()
		t.pump()
	}()
}

func (t *Throttle) observeLocked() {
	if t.OnDepth != nil {
		t.OnDepth(len(t.queue), t.active)
	}
}
