// Package capability watches host load and suggests a render quality
// tier. The monitor only suggests; whoever drives the renderer decides
// when to apply the suggestion.
package capability

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Matheo93/eva-presence/internal/render"
)

// Sampler returns the current CPU utilization (0..100) and the used
// memory fraction (0..1).
type Sampler func() (cpuPercent float64, memUsed float64, err error)

func systemSampler() (float64, float64, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, 0, err
	}
	cpuPct := 0.0
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return cpuPct, 0, err
	}
	return cpuPct, vm.UsedPercent / 100, nil
}

// Config tunes the tier suggestion thresholds.
type Config struct {
	// Interval between samples.
	Interval time.Duration
	// CPU percentages above which the suggestion drops a tier.
	MediumCPU float64
	LowCPU    float64
	// Memory fraction above which high tier is never suggested.
	MemoryCeiling float64
	// Consecutive agreeing samples required before the suggestion
	// changes. Downgrades and upgrades both wait this long, so a
	// single spike never flips the tier.
	Stability int
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		Interval:      2 * time.Second,
		MediumCPU:     60,
		LowCPU:        85,
		MemoryCeiling: 0.90,
		Stability:     3,
	}
}

// Monitor periodically samples host load and calls back with a new
// suggested tier when the suggestion settles on a different value.
type Monitor struct {
	cfg     Config
	sampler Sampler
	logger  zerolog.Logger

	mu        sync.Mutex
	current   render.QualityTier
	candidate render.QualityTier
	streak    int

	onChange func(render.QualityTier)
}

// NewMonitor creates a monitor starting from the given tier.
func NewMonitor(cfg Config, start render.QualityTier, logger zerolog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Stability <= 0 {
		cfg.Stability = 1
	}
	return &Monitor{
		cfg:       cfg,
		sampler:   systemSampler,
		logger:    logger.With().Str("component", "capability").Logger(),
		current:   start,
		candidate: start,
	}
}

// SetSampler replaces the system sampler. Used by tests.
func (m *Monitor) SetSampler(s Sampler) { m.sampler = s }

// OnChange registers the callback invoked when the suggestion changes.
// Must be set before Run.
func (m *Monitor) OnChange(fn func(render.QualityTier)) { m.onChange = fn }

// Current returns the settled tier suggestion.
func (m *Monitor) Current() render.QualityTier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Override force-settles the suggestion, discarding any streak in
// flight. Used when an operator assigns the tier directly.
func (m *Monitor) Override(tier render.QualityTier) {
	m.mu.Lock()
	m.current = tier
	m.candidate = tier
	m.streak = 0
	m.mu.Unlock()
}

// Run samples until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample()
		}
	}
}

// Sample takes one measurement and updates the suggestion.
func (m *Monitor) Sample() {
	cpuPct, memUsed, err := m.sampler()
	if err != nil {
		m.logger.Warn().Err(err).Msg("load sample failed")
		return
	}
	m.apply(m.classify(cpuPct, memUsed))
}

func (m *Monitor) classify(cpuPct, memUsed float64) render.QualityTier {
	switch {
	case cpuPct >= m.cfg.LowCPU:
		return render.TierLow
	case cpuPct >= m.cfg.MediumCPU:
		return render.TierMedium
	case memUsed >= m.cfg.MemoryCeiling:
		return render.TierMedium
	default:
		return render.TierHigh
	}
}

func (m *Monitor) apply(tier render.QualityTier) {
	m.mu.Lock()
	if tier == m.current {
		m.candidate = tier
		m.streak = 0
		m.mu.Unlock()
		return
	}
	if tier != m.candidate {
		m.candidate = tier
		m.streak = 1
		m.mu.Unlock()
		return
	}
	m.streak++
	if m.streak < m.cfg.Stability {
		m.mu.Unlock()
		return
	}

	prev := m.current
	m.current = tier
	m.streak = 0
	m.mu.Unlock()

	m.logger.Info().
		Str("from", string(prev)).
		Str("to", string(tier)).
		Msg("suggested tier changed")
	if m.onChange != nil {
		m.onChange(tier)
	}
}
