// Package diag keeps development-only latency and frame-rate
// observations in memory. Nothing here is ever persisted, and a
// disabled monitor records and reports nothing, so production builds
// carry no diagnostic surface.
package diag

import (
	"sync"
	"time"
)

// Stats is the current diagnostic snapshot. FPS is derived from the
// spacing between frames; AvgFrameTime and WorstFrameTime measure the
// work done inside each frame.
type Stats struct {
	FPS            float64
	AvgFrameTime   time.Duration
	WorstFrameTime time.Duration
	TouchLatency   time.Duration
	Frames         int
}

// Monitor accumulates frame deltas, frame work durations and touch
// latency samples in bounded rings.
type Monitor struct {
	mu      sync.Mutex
	enabled bool

	deltas []time.Duration
	work   []time.Duration
	index  int
	filled bool

	lastTouchLatency time.Duration
	totalFrames      int
}

// NewMonitor creates a monitor; window is the number of frames retained
// for the rolling averages.
func NewMonitor(enabled bool, window int) *Monitor {
	if window <= 0 {
		window = 120
	}
	return &Monitor{
		enabled: enabled,
		deltas:  make([]time.Duration, window),
		work:    make([]time.Duration, window),
	}
}

// Enabled reports whether the indicator may be displayed at all.
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// RecordFrame records one frame: dt is the time since the previous
// frame (the loop cadence), work is how long this frame's callback ran.
// No-op when disabled.
func (m *Monitor) RecordFrame(dt, work time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled || dt <= 0 {
		return
	}
	if work < 0 {
		work = 0
	}

	m.deltas[m.index] = dt
	m.work[m.index] = work
	m.index = (m.index + 1) % len(m.deltas)
	if m.index == 0 {
		m.filled = true
	}
	m.totalFrames++
}

// RecordTouchLatency records the optimizer's latest latency sample.
func (m *Monitor) RecordTouchLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}
	m.lastTouchLatency = d
}

// Stats returns the rolling snapshot. A disabled monitor returns the
// zero value.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return Stats{}
	}

	n := m.index
	if m.filled {
		n = len(m.deltas)
	}
	if n == 0 {
		return Stats{TouchLatency: m.lastTouchLatency}
	}

	var deltaSum, workSum, worst time.Duration
	for i := 0; i < n; i++ {
		deltaSum += m.deltas[i]
		w := m.work[i]
		workSum += w
		if w > worst {
			worst = w
		}
	}
	avgDelta := deltaSum / time.Duration(n)
	avgWork := workSum / time.Duration(n)

	fps := 0.0
	if avgDelta > 0 {
		fps = float64(time.Second) / float64(avgDelta)
	}

	return Stats{
		FPS:            fps,
		AvgFrameTime:   avgWork,
		WorstFrameTime: worst,
		TouchLatency:   m.lastTouchLatency,
		Frames:         m.totalFrames,
	}
}
