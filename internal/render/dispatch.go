package render

import (
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher selects exactly one strategy per render pass based on the
// tier it is handed. It never measures its own performance and never
// self-downgrades; the tier argument is read fresh every call.
type Dispatcher struct {
	mu         sync.RWMutex
	strategies map[QualityTier]Strategy

	rig    *RigState
	logger zerolog.Logger

	lastTier QualityTier // log-only, never used for selection
}

// NewDispatcher creates a dispatcher with the three standard tiers
// registered and fresh shared rig state.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		strategies: make(map[QualityTier]Strategy),
		rig:        NewRigState(),
		logger:     logger.With().Str("component", "render-dispatch").Logger(),
	}
	d.Register(LowTier{})
	d.Register(MediumTier{})
	d.Register(HighTier{})
	return d
}

// Register adds or replaces a strategy. New tiers plug in here without
// touching any call site.
func (d *Dispatcher) Register(s Strategy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strategies[s.Tier()] = s
}

// Rig exposes the shared animation state (blink, breathing) that lives
// above the tier boundary.
func (d *Dispatcher) Rig() *RigState { return d.rig }

// Render advances the shared rig once, then invokes the strategy for the
// given tier. Unknown tiers fall back to low. Switching tiers between
// calls is instantaneous and lossless.
func (d *Dispatcher) Render(tier QualityTier, in FrameInput) Frame {
	d.rig.Advance(in.DT, in.Now)

	d.mu.RLock()
	s, ok := d.strategies[tier]
	if !ok {
		s = d.strategies[TierLow]
	}
	last := d.lastTier
	d.mu.RUnlock()

	if tier != last {
		d.logger.Debug().
			Str("from", string(last)).
			Str("to", string(tier)).
			Msg("render tier switched")
		d.mu.Lock()
		d.lastTier = tier
		d.mu.Unlock()
	}

	return s.Render(in, d.rig)
}
