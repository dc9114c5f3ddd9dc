package touch

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOptimizer struct {
	events []Event
	result Feedback
}

func (r *recordingOptimizer) Respond(ev Event) Feedback {
	r.events = append(r.events, ev)
	return r.result
}

func TestForwardPassesEventUnmodified(t *testing.T) {
	opt := &recordingOptimizer{result: Feedback{X: 10, Y: 20, Latency: 3 * time.Millisecond}}
	f := NewForwarder(opt, zerolog.Nop())

	ev := Event{X: 1.5, Y: -2.5, Pressed: true, Timestamp: time.Now()}
	fb := f.Forward(ev)

	require.Len(t, opt.events, 1)
	assert.Equal(t, ev, opt.events[0], "events must reach the optimizer unmodified")
	assert.Equal(t, opt.result, fb)
}

func TestLastFeedback(t *testing.T) {
	opt := &recordingOptimizer{result: Feedback{X: 5, Latency: time.Millisecond}}
	f := NewForwarder(opt, zerolog.Nop())

	_, ok := f.LastFeedback()
	assert.False(t, ok, "no feedback before the first event")

	f.Forward(Event{})
	fb, ok := f.LastFeedback()
	assert.True(t, ok)
	assert.Equal(t, opt.result, fb)
}

func TestForwardWithoutOptimizer(t *testing.T) {
	f := NewForwarder(nil, zerolog.Nop())
	assert.Equal(t, Feedback{}, f.Forward(Event{X: 1}))

	_, ok := f.LastFeedback()
	assert.False(t, ok)
}

func TestSetOptimizerLater(t *testing.T) {
	f := NewForwarder(nil, zerolog.Nop())
	assert.Equal(t, Feedback{}, f.Forward(Event{X: 1}))

	opt := &recordingOptimizer{result: Feedback{X: 7, Latency: 2 * time.Millisecond}}
	f.SetOptimizer(opt)

	fb := f.Forward(Event{X: 2})
	require.Len(t, opt.events, 1)
	assert.Equal(t, opt.result, fb)
}
