// Package touch forwards pointer events, unmodified, to the external
// touch-response optimizer and retains only what the presence layer may
// display: the immediate feedback position and a latency sample.
package touch

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is a raw pointer event. The presence core never interprets it.
type Event struct {
	X         float64
	Y         float64
	Pressed   bool
	Timestamp time.Time
}

// Feedback is the optimizer's published result: where to paint the
// immediate response and how long the prediction took.
type Feedback struct {
	X       float64
	Y       float64
	Latency time.Duration
}

// Optimizer is the external touch-latency-prediction collaborator.
type Optimizer interface {
	Respond(ev Event) Feedback
}

// Forwarder passes events straight through to the optimizer. No
// buffering, no mutation, no interpretation.
type Forwarder struct {
	mu        sync.RWMutex
	optimizer Optimizer
	logger    zerolog.Logger

	lastFeedback Feedback
	hasFeedback  bool
}

// NewForwarder wraps the given optimizer. A nil optimizer may be
// injected later with SetOptimizer.
func NewForwarder(optimizer Optimizer, logger zerolog.Logger) *Forwarder {
	return &Forwarder{
		optimizer: optimizer,
		logger:    logger.With().Str("component", "touch").Logger(),
	}
}

// SetOptimizer installs or replaces the optimizer collaborator. The
// hosting application calls this once its prediction engine is up.
func (f *Forwarder) SetOptimizer(optimizer Optimizer) {
	f.mu.Lock()
	f.optimizer = optimizer
	f.mu.Unlock()
}

// Forward hands the event to the optimizer and records its feedback.
// Returns the zero Feedback when no optimizer is wired.
func (f *Forwarder) Forward(ev Event) Feedback {
	f.mu.RLock()
	opt := f.optimizer
	f.mu.RUnlock()

	if opt == nil {
		return Feedback{}
	}

	fb := opt.Respond(ev)

	f.mu.Lock()
	f.lastFeedback = fb
	f.hasFeedback = true
	f.mu.Unlock()

	f.logger.Debug().
		Float64("x", fb.X).
		Float64("y", fb.Y).
		Dur("latency", fb.Latency).
		Msg("touch feedback")
	return fb
}

// LastFeedback returns the most recent feedback, if any.
func (f *Forwarder) LastFeedback() (Feedback, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastFeedback, f.hasFeedback
}
