package capability

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/Matheo93/eva-presence/internal/render"
)

func fixedSampler(cpuPct, memUsed float64) Sampler {
	return func() (float64, float64, error) {
		return cpuPct, memUsed, nil
	}
}

func TestClassifyThresholds(t *testing.T) {
	m := NewMonitor(DefaultConfig(), render.TierHigh, zerolog.Nop())

	tests := []struct {
		name    string
		cpuPct  float64
		memUsed float64
		want    render.QualityTier
	}{
		{"idle host", 10, 0.3, render.TierHigh},
		{"moderate load", 70, 0.3, render.TierMedium},
		{"saturated cpu", 95, 0.3, render.TierLow},
		{"memory pressure caps high", 10, 0.95, render.TierMedium},
		{"cpu wins over memory", 95, 0.95, render.TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.classify(tt.cpuPct, tt.memUsed))
		})
	}
}

func TestSuggestionNeedsStableStreak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stability = 3
	m := NewMonitor(cfg, render.TierHigh, zerolog.Nop())

	var changes []render.QualityTier
	m.OnChange(func(tier render.QualityTier) { changes = append(changes, tier) })

	m.SetSampler(fixedSampler(95, 0.3))
	m.Sample()
	m.Sample()
	assert.Equal(t, render.TierHigh, m.Current(), "two samples must not flip the tier")

	m.Sample()
	assert.Equal(t, render.TierLow, m.Current())
	assert.Equal(t, []render.QualityTier{render.TierLow}, changes)
}

func TestSpikeDoesNotFlipTier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stability = 3
	m := NewMonitor(cfg, render.TierHigh, zerolog.Nop())

	m.SetSampler(fixedSampler(95, 0.3))
	m.Sample()
	m.Sample()

	// Load recovers before the streak completes.
	m.SetSampler(fixedSampler(10, 0.3))
	m.Sample()

	m.SetSampler(fixedSampler(95, 0.3))
	m.Sample()
	m.Sample()
	assert.Equal(t, render.TierHigh, m.Current(), "streak must restart after recovery")
}

func TestOverrideDiscardsStreak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stability = 3
	m := NewMonitor(cfg, render.TierHigh, zerolog.Nop())

	m.SetSampler(fixedSampler(95, 0.3))
	m.Sample()
	m.Sample()

	m.Override(render.TierLow)
	assert.Equal(t, render.TierLow, m.Current())

	// The load still reads low-tier, which now agrees with the
	// override, so no change fires and no leftover streak re-fights it.
	var changes []render.QualityTier
	m.OnChange(func(tier render.QualityTier) { changes = append(changes, tier) })
	m.Sample()
	assert.Empty(t, changes)
	assert.Equal(t, render.TierLow, m.Current())
}

func TestCurrentSafeDuringSampling(t *testing.T) {
	m := NewMonitor(DefaultConfig(), render.TierHigh, zerolog.Nop())
	m.SetSampler(fixedSampler(95, 0.3))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			m.Sample()
		}
	}()
	for i := 0; i < 100; i++ {
		_ = m.Current()
	}
	<-done
}

func TestSampleErrorKeepsTier(t *testing.T) {
	m := NewMonitor(DefaultConfig(), render.TierMedium, zerolog.Nop())
	m.SetSampler(func() (float64, float64, error) {
		return 0, 0, assert.AnError
	})
	m.Sample()
	assert.Equal(t, render.TierMedium, m.Current())
}
