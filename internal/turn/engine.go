// Package turn infers which party holds the conversational floor from a
// rolling voice-amplitude signal and elapsed-time thresholds. No semantic
// content is consumed: the engine sees energy, counterpart flags and a
// clock, nothing else.
package turn

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Matheo93/eva-presence/internal/audio"
)

// State is the floor-holding classification for one tick.
type State string

const (
	StateUserSpeaking State = "user_speaking"
	StateUserPausing  State = "user_pausing"
	StateTRPDetected  State = "trp_detected"
	StateEvaPreparing State = "eva_preparing"
	StateEvaSpeaking  State = "eva_speaking"
	StateEvaYielding  State = "eva_yielding"
	StateNeutral      State = "neutral"
)

// States lists the closed set of turn states.
var States = []State{
	StateUserSpeaking,
	StateUserPausing,
	StateTRPDetected,
	StateEvaPreparing,
	StateEvaSpeaking,
	StateEvaYielding,
	StateNeutral,
}

// Inputs are the signals consumed on every tick. Amplitude is sanitized
// before use; absent flags simply read false and degrade toward neutral.
type Inputs struct {
	Amplitude            float64
	CounterpartSpeaking  bool
	CounterpartListening bool
	CounterpartThinking  bool
	HasPendingResponse   bool
}

// Config holds the tunable timing constants.
type Config struct {
	// SpeechThreshold classifies "user producing speech energy" (default 0.1).
	SpeechThreshold float64
	// TRPWindowStart is the silence duration after which a transition-relevant
	// point may be detected (default 400ms).
	TRPWindowStart time.Duration
	// TRPWindowEnd is the silence duration at which a terminal decision is
	// made: eva_preparing if a response is pending, neutral otherwise
	// (default 1s).
	TRPWindowEnd time.Duration
	// YieldHold is how long eva_yielding is reported after the counterpart
	// stops speaking while the user stays silent (default 300ms).
	YieldHold time.Duration
	// StaleAfter bounds how long engine memory survives without a tick.
	// A gap longer than this clears the silence timer so a stalled source
	// cannot fabricate turn decisions (default 3s).
	StaleAfter time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SpeechThreshold: 0.1,
		TRPWindowStart:  400 * time.Millisecond,
		TRPWindowEnd:    time.Second,
		YieldHold:       300 * time.Millisecond,
		StaleAfter:      3 * time.Second,
	}
}

// Memory is the engine-local state carried between ticks: the silence
// timer, the previous-tick speaking flag, and the counterpart-speech edge
// used for the yield hold.
type Memory struct {
	SilenceStart time.Time
	SilenceSet   bool

	PrevSpeaking bool

	YieldStart time.Time
	YieldSet   bool

	prevCounterpartSpeaking bool
}

func (m *Memory) clearSilence() {
	m.SilenceSet = false
	m.SilenceStart = time.Time{}
}

// Next is the total transition function: (inputs, memory, now) always
// yields exactly one state and the next memory. It never fails; invalid
// amplitude collapses to 0 and missing flags fall through to neutral.
//
// Priority order: counterpart speaking > thinking with pending response >
// listening branch > neutral. Speaking beats thinking when both are set.
func Next(in Inputs, mem Memory, now time.Time, cfg Config) (State, Memory) {
	amp := audio.Sanitize(in.Amplitude)
	speech := amp >= cfg.SpeechThreshold

	next := mem
	next.PrevSpeaking = speech

	// Counterpart speech falling edge starts the yield hold.
	if mem.prevCounterpartSpeaking && !in.CounterpartSpeaking {
		next.YieldStart = now
		next.YieldSet = true
	}
	next.prevCounterpartSpeaking = in.CounterpartSpeaking

	switch {
	case in.CounterpartSpeaking:
		next.clearSilence()
		next.YieldSet = false
		return StateEvaSpeaking, next

	case in.CounterpartThinking && in.HasPendingResponse:
		next.clearSilence()
		return StateEvaPreparing, next

	case in.CounterpartListening:
		if speech {
			next.clearSilence()
			next.YieldSet = false
			return StateUserSpeaking, next
		}

		if mem.PrevSpeaking && !mem.SilenceSet {
			next.SilenceStart = now
			next.SilenceSet = true
			return StateUserPausing, next
		}

		if mem.SilenceSet {
			d := now.Sub(mem.SilenceStart)
			switch {
			case d >= cfg.TRPWindowEnd:
				next.clearSilence()
				if in.HasPendingResponse {
					return StateEvaPreparing, next
				}
				return StateNeutral, next
			case d >= cfg.TRPWindowStart && in.CounterpartThinking:
				return StateTRPDetected, next
			default:
				return StateUserPausing, next
			}
		}

		if next.YieldSet && now.Sub(next.YieldStart) < cfg.YieldHold {
			return StateEvaYielding, next
		}
		next.YieldSet = false
		return StateNeutral, next

	default:
		next.clearSilence()
		return StateNeutral, next
	}
}

// Engine owns one avatar instance's turn state. It is evaluated once per
// tick (audio-frame cadence or timer) and mutated nowhere else.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	mem      Memory
	state    State
	lastTick time.Time

	now    func() time.Time
	logger zerolog.Logger
}

// NewEngine creates an engine with the given config and logger.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.SpeechThreshold <= 0 {
		cfg.SpeechThreshold = DefaultConfig().SpeechThreshold
	}
	if cfg.TRPWindowStart <= 0 {
		cfg.TRPWindowStart = DefaultConfig().TRPWindowStart
	}
	if cfg.TRPWindowEnd <= 0 {
		cfg.TRPWindowEnd = DefaultConfig().TRPWindowEnd
	}
	if cfg.YieldHold <= 0 {
		cfg.YieldHold = DefaultConfig().YieldHold
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultConfig().StaleAfter
	}
	return &Engine{
		cfg:    cfg,
		state:  StateNeutral,
		now:    time.Now,
		logger: logger.With().Str("component", "turn-engine").Logger(),
	}
}

// SetClock injects a clock, used by tests to hit exact timing boundaries.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Tick evaluates one step and returns the new state.
func (e *Engine) Tick(in Inputs) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	// A long gap between ticks means the source stalled; old silence
	// timers would otherwise mature into spurious decisions.
	if !e.lastTick.IsZero() && now.Sub(e.lastTick) > e.cfg.StaleAfter {
		e.logger.Debug().
			Dur("gap", now.Sub(e.lastTick)).
			Msg("input gap exceeded staleness bound, clearing memory")
		e.mem = Memory{}
	}
	e.lastTick = now

	state, mem := Next(in, e.mem, now, e.cfg)
	if state != e.state {
		e.logger.Debug().
			Str("from", string(e.state)).
			Str("to", string(state)).
			Float64("amplitude", in.Amplitude).
			Msg("turn state changed")
	}
	e.mem = mem
	e.state = state
	return state
}

// State returns the current turn state. If no tick has arrived within the
// staleness bound the engine reports neutral rather than holding a stale
// floor assignment.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastTick.IsZero() || e.now().Sub(e.lastTick) > e.cfg.StaleAfter {
		return StateNeutral
	}
	return e.state
}

// SilenceTimerSet reports whether the silence timer is currently armed.
func (e *Engine) SilenceTimerSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mem.SilenceSet
}
