package pacing

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FrameFunc is invoked once per frame with the frame timestamp and the
// time elapsed since the previous frame.
type FrameFunc func(now time.Time, dt time.Duration)

// Loop is the fixed-rate scheduler standing in for a display-refresh
// callback on non-browser targets: it runs the registered callback at
// most once per interval, on a single goroutine. Stop unregisters the
// callback so teardown never touches freed render targets.
type Loop struct {
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewLoop creates a loop at the given refresh rate (frames per second).
func NewLoop(refreshFPS float64, logger zerolog.Logger) *Loop {
	if refreshFPS <= 0 {
		refreshFPS = 60
	}
	return &Loop{
		interval: time.Duration(float64(time.Second) / refreshFPS),
		logger:   logger.With().Str("component", "frame-loop").Logger(),
	}
}

// Start begins invoking fn. It is a no-op if the loop is already running.
func (l *Loop) Start(fn FrameFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go l.run(fn, l.stop, l.done)
	l.logger.Debug().Dur("interval", l.interval).Msg("frame loop started")
}

func (l *Loop) run(fn FrameFunc, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	prev := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			fn(now, now.Sub(prev))
			prev = now
		}
	}
}

// Stop unregisters the callback and waits for the in-flight frame to
// finish. Safe to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stop, done := l.stop, l.done
	l.mu.Unlock()

	close(stop)
	<-done
	l.logger.Debug().Msg("frame loop stopped")
}

// Running reports whether the loop currently has a registered callback.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
