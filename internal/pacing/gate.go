// Package pacing bounds the rate at which rapidly-changing values reach
// the renderer. A Gate is a single-slot mailbox: the newest offered value
// wins, and it propagates at most once per configured interval, always
// from the host's frame callback rather than a timer of its own.
package pacing

import (
	"sync"
	"time"
)

// Gate paces a value of type T. Offer may be called at any frequency;
// Observe is called once per visual frame and returns the latest value
// only when the minimum interval has elapsed since the last propagation.
type Gate[T any] struct {
	mu sync.Mutex

	interval time.Duration
	last     time.Time
	hasLast  bool

	pending    T
	hasPending bool
	current    T
}

// NewGate creates a gate targeting the given frame rate. A rate of 0 or
// below disables pacing: every frame observes the newest value.
func NewGate[T any](targetFPS float64) *Gate[T] {
	var interval time.Duration
	if targetFPS > 0 {
		interval = time.Duration(float64(time.Second) / targetFPS)
	}
	return &Gate[T]{interval: interval}
}

// Offer stores v as the candidate for the next propagation, replacing
// any previous candidate. No queue, no averaging.
func (g *Gate[T]) Offer(v T) {
	g.mu.Lock()
	g.pending = v
	g.hasPending = true
	g.mu.Unlock()
}

// Observe is driven by the frame callback. It returns the current paced
// value and whether this frame propagated a new one.
func (g *Gate[T]) Observe(now time.Time) (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasPending {
		return g.current, false
	}
	if g.hasLast && now.Sub(g.last) < g.interval {
		return g.current, false
	}

	g.current = g.pending
	g.hasPending = false
	g.last = now
	g.hasLast = true
	return g.current, true
}

// Current returns the last propagated value without consuming anything.
func (g *Gate[T]) Current() T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}
