package turn

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told, so tests can hit exact boundaries.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(clock *fakeClock) *Engine {
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	e.SetClock(clock.Now)
	return e
}

func listening(amp float64) Inputs {
	return Inputs{Amplitude: amp, CounterpartListening: true}
}

func listeningThinking(amp float64) Inputs {
	return Inputs{Amplitude: amp, CounterpartListening: true, CounterpartThinking: true}
}

func TestTickAlwaysReturnsEnumeratedState(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	valid := make(map[State]bool, len(States))
	for _, s := range States {
		valid[s] = true
	}

	amps := []float64{0, 0.05, 0.1, 0.3, 1, -1, 2, math.NaN(), math.Inf(1)}
	for _, amp := range amps {
		for mask := 0; mask < 16; mask++ {
			in := Inputs{
				Amplitude:            amp,
				CounterpartSpeaking:  mask&1 != 0,
				CounterpartListening: mask&2 != 0,
				CounterpartThinking:  mask&4 != 0,
				HasPendingResponse:   mask&8 != 0,
			}
			state := e.Tick(in)
			assert.True(t, valid[state], "tick must yield an enumerated state, got %q for %+v", state, in)
			clock.Advance(50 * time.Millisecond)
		}
	}
}

func TestCounterpartSpeakingAlwaysWins(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	inputs := []Inputs{
		{CounterpartSpeaking: true},
		{CounterpartSpeaking: true, CounterpartThinking: true, HasPendingResponse: true},
		{CounterpartSpeaking: true, CounterpartListening: true, Amplitude: 0.9},
		{CounterpartSpeaking: true, Amplitude: math.NaN()},
	}
	for _, in := range inputs {
		assert.Equal(t, StateEvaSpeaking, e.Tick(in), "speaking is the highest-priority branch: %+v", in)
		clock.Advance(100 * time.Millisecond)
	}
}

func TestSilenceTimerSetOnlyOnSpeechToSilenceEdge(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	// Silence with no prior speech never arms the timer.
	e.Tick(listening(0))
	assert.False(t, e.SilenceTimerSet())

	// Speech arms nothing.
	e.Tick(listening(0.3))
	assert.False(t, e.SilenceTimerSet())

	// Speech then silence arms the timer.
	clock.Advance(100 * time.Millisecond)
	state := e.Tick(listening(0.05))
	assert.Equal(t, StateUserPausing, state)
	assert.True(t, e.SilenceTimerSet())

	// Speech resuming clears it.
	clock.Advance(100 * time.Millisecond)
	e.Tick(listening(0.5))
	assert.False(t, e.SilenceTimerSet())
}

func TestSilenceBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		silence time.Duration
		in      Inputs
		want    State
	}{
		{"399ms, thinking", 399 * time.Millisecond, listeningThinking(0), StateUserPausing},
		{"400ms, thinking", 400 * time.Millisecond, listeningThinking(0), StateTRPDetected},
		{"999ms, thinking", 999 * time.Millisecond, listeningThinking(0), StateTRPDetected},
		{"400ms, not thinking", 400 * time.Millisecond, listening(0), StateUserPausing},
		{"1000ms, no pending", time.Second, listening(0), StateNeutral},
		{
			"1000ms, pending",
			time.Second,
			Inputs{CounterpartListening: true, HasPendingResponse: true},
			StateEvaPreparing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			e := newTestEngine(clock)

			// Speak, then fall silent to arm the timer at t0.
			e.Tick(listening(0.3))
			clock.Advance(10 * time.Millisecond)
			require.Equal(t, StateUserPausing, e.Tick(listening(0)))

			clock.Advance(tt.silence)
			assert.Equal(t, tt.want, e.Tick(tt.in))
		})
	}
}

func TestTerminalDecisionClearsTimer(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	e.Tick(listening(0.3))
	clock.Advance(10 * time.Millisecond)
	e.Tick(listening(0))
	require.True(t, e.SilenceTimerSet())

	clock.Advance(time.Second)
	assert.Equal(t, StateNeutral, e.Tick(listening(0)))
	assert.False(t, e.SilenceTimerSet())
}

func TestScenarioAmplitudeSequence(t *testing.T) {
	// [0.3, 0.3, 0.05, 0.05, 0.05] sampled every 200ms with
	// listening+thinking set.
	clock := newFakeClock()
	e := newTestEngine(clock)

	amps := []float64{0.3, 0.3, 0.05, 0.05, 0.05}
	want := []State{
		StateUserSpeaking,
		StateUserSpeaking,
		StateUserPausing,
		StateUserPausing,
		StateTRPDetected,
	}

	for i, amp := range amps {
		state := e.Tick(listeningThinking(amp))
		assert.Equal(t, want[i], state, "tick %d (amplitude %.2f)", i, amp)
		clock.Advance(200 * time.Millisecond)
	}
}

func TestThinkingWithPendingResponse(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	state := e.Tick(Inputs{CounterpartThinking: true, HasPendingResponse: true})
	assert.Equal(t, StateEvaPreparing, state)
	assert.False(t, e.SilenceTimerSet())
}

func TestThinkingWithoutPendingFallsThrough(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	// Not listening either, so only neutral remains.
	state := e.Tick(Inputs{CounterpartThinking: true})
	assert.Equal(t, StateNeutral, state)
}

func TestAbsentInputDegradesToNeutral(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	assert.Equal(t, StateNeutral, e.Tick(Inputs{}))
	assert.Equal(t, StateNeutral, e.Tick(Inputs{Amplitude: math.NaN()}))
}

func TestYieldHoldAfterCounterpartStopsSpeaking(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	require.Equal(t, StateEvaSpeaking, e.Tick(Inputs{CounterpartSpeaking: true}))

	// Counterpart hands the floor back while the user is still silent.
	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, StateEvaYielding, e.Tick(listening(0)))

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, StateEvaYielding, e.Tick(listening(0)))

	// Past the hold window the floor is nobody's.
	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, StateNeutral, e.Tick(listening(0)))
}

func TestYieldCancelledByUserSpeech(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	e.Tick(Inputs{CounterpartSpeaking: true})
	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, StateUserSpeaking, e.Tick(listening(0.4)))
}

func TestStaleInputClearsMemory(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	// Arm the silence timer, then stall the source for several seconds.
	e.Tick(listening(0.3))
	clock.Advance(100 * time.Millisecond)
	e.Tick(listening(0))
	require.True(t, e.SilenceTimerSet())

	clock.Advance(5 * time.Second)
	state := e.Tick(listening(0))
	assert.Equal(t, StateNeutral, state, "a stale silence timer must not mature into a decision")
	assert.False(t, e.SilenceTimerSet())
}

func TestStateReportsNeutralWhenStale(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)

	e.Tick(Inputs{CounterpartSpeaking: true})
	assert.Equal(t, StateEvaSpeaking, e.State())

	clock.Advance(10 * time.Second)
	assert.Equal(t, StateNeutral, e.State())
}

func TestNextIsPure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := listeningThinking(0.05)
	mem := Memory{SilenceStart: now.Add(-500 * time.Millisecond), SilenceSet: true}

	s1, m1 := Next(in, mem, now, DefaultConfig())
	s2, m2 := Next(in, mem, now, DefaultConfig())

	assert.Equal(t, s1, s2)
	assert.Equal(t, m1, m2)
	assert.Equal(t, StateTRPDetected, s1)
}
