package diag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisabledMonitorRecordsNothing(t *testing.T) {
	m := NewMonitor(false, 10)

	m.RecordFrame(16*time.Millisecond, time.Millisecond)
	m.RecordTouchLatency(2 * time.Millisecond)

	assert.False(t, m.Enabled())
	assert.Equal(t, Stats{}, m.Stats(), "a disabled monitor must report nothing")
}

func TestFPSReflectsLoopCadenceNotFrameWork(t *testing.T) {
	m := NewMonitor(true, 120)

	// Frames arrive every ~16.7ms but each one only does a few hundred
	// microseconds of work. The rate figure must come from the spacing.
	for i := 0; i < 60; i++ {
		m.RecordFrame(16700*time.Microsecond, 200*time.Microsecond)
	}

	stats := m.Stats()
	assert.InDelta(t, 60, stats.FPS, 1)
	assert.Equal(t, 200*time.Microsecond, stats.AvgFrameTime)
}

func TestStatsRollingWindow(t *testing.T) {
	m := NewMonitor(true, 4)

	for i := 0; i < 4; i++ {
		m.RecordFrame(20*time.Millisecond, 5*time.Millisecond)
	}

	stats := m.Stats()
	assert.InDelta(t, 50, stats.FPS, 0.1)
	assert.Equal(t, 5*time.Millisecond, stats.AvgFrameTime)
	assert.Equal(t, 5*time.Millisecond, stats.WorstFrameTime)
	assert.Equal(t, 4, stats.Frames)
}

func TestWorstFrameTracked(t *testing.T) {
	m := NewMonitor(true, 10)

	m.RecordFrame(16*time.Millisecond, time.Millisecond)
	m.RecordFrame(16*time.Millisecond, 100*time.Millisecond)
	m.RecordFrame(16*time.Millisecond, time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, m.Stats().WorstFrameTime)
}

func TestTouchLatencySample(t *testing.T) {
	m := NewMonitor(true, 10)
	m.RecordTouchLatency(3 * time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, m.Stats().TouchLatency)
}

func TestInvalidFrameDeltaIgnored(t *testing.T) {
	m := NewMonitor(true, 10)
	m.RecordFrame(0, time.Millisecond)
	m.RecordFrame(-5*time.Millisecond, time.Millisecond)
	assert.Equal(t, 0, m.Stats().Frames)
}
