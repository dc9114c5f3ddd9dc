package render

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// RigState is the persistent animation state shared by every tier. It
// lives above the tier boundary so a tier switch is lossless: a blink
// that started at high tier finishes at low tier, and the breathing
// phase never resets.
type RigState struct {
	mu sync.Mutex

	blink          blinkPhase
	blinkProgress  float32
	blinkDuration  float32
	nextBlinkAt    time.Time
	minBlinkGap    time.Duration
	maxBlinkGap    time.Duration

	breathingPhase float32
	breathingRate  float32
}

type blinkPhase int

const (
	blinkOpen blinkPhase = iota
	blinkClosing
	blinkClosed
	blinkOpening
)

// NewRigState creates rig state with natural blink and breathing cadence.
func NewRigState() *RigState {
	return &RigState{
		blinkDuration: 0.15,
		minBlinkGap:   2 * time.Second,
		maxBlinkGap:   5 * time.Second,
		breathingRate: 0.2,
	}
}

// Advance steps the blink state machine and breathing phase by dt
// seconds. Called exactly once per render pass, before tier dispatch.
func (r *RigState) Advance(dt float32, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dt < 0 || dt != dt {
		dt = 0
	}

	r.breathingPhase += dt * r.breathingRate * 2 * math.Pi
	if r.breathingPhase > 2*math.Pi {
		r.breathingPhase -= 2 * math.Pi
	}

	switch r.blink {
	case blinkOpen:
		if r.nextBlinkAt.IsZero() {
			r.nextBlinkAt = now.Add(randomGap(r.minBlinkGap, r.maxBlinkGap))
		}
		if now.After(r.nextBlinkAt) {
			r.blink = blinkClosing
			r.blinkProgress = 0
		}
	case blinkClosing:
		r.blinkProgress += dt / (r.blinkDuration * 0.4)
		if r.blinkProgress >= 1 {
			r.blinkProgress = 1
			r.blink = blinkClosed
		}
	case blinkClosed:
		r.blinkProgress += dt / (r.blinkDuration * 0.1)
		if r.blinkProgress >= 1.1 {
			r.blink = blinkOpening
			r.blinkProgress = 1
		}
	case blinkOpening:
		r.blinkProgress -= dt / (r.blinkDuration * 0.5)
		if r.blinkProgress <= 0 {
			r.blinkProgress = 0
			r.blink = blinkOpen
			r.nextBlinkAt = now.Add(randomGap(r.minBlinkGap, r.maxBlinkGap))
		}
	}
}

// TriggerBlink starts a blink immediately if the eyes are open.
func (r *RigState) TriggerBlink() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blink == blinkOpen {
		r.blink = blinkClosing
		r.blinkProgress = 0
	}
}

// BlinkAmount returns eyelid closure in [0,1].
func (r *RigState) BlinkAmount() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.blink {
	case blinkClosing:
		return easeOutQuad(r.blinkProgress)
	case blinkClosed:
		return 1
	case blinkOpening:
		return easeInQuad(clamp32(r.blinkProgress, 0, 1))
	default:
		return 0
	}
}

// IsBlinking reports whether a blink is in flight.
func (r *RigState) IsBlinking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blink != blinkOpen
}

// BreathingOffset returns the current breathing displacement in [-1,1].
func (r *RigState) BreathingOffset() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float32(math.Sin(float64(r.breathingPhase)))
}

// BreathingPhase exposes the raw phase, used to verify losslessness
// across tier switches.
func (r *RigState) BreathingPhase() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.breathingPhase
}

// SetBlinkGap tunes the blink scheduling window.
func (r *RigState) SetBlinkGap(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minBlinkGap = min
	r.maxBlinkGap = max
	r.nextBlinkAt = time.Time{}
}

func randomGap(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Float64()*float64(max-min))
}

func easeOutQuad(t float32) float32 { return t * (2 - t) }
func easeInQuad(t float32) float32  { return t * t }

func clamp32(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// sanitize32 collapses invalid numerics to 0 so they never reach layout
// or color parameters.
func sanitize32(v float32) float32 {
	if v != v || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}
