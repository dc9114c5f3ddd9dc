// Package audio provides the amplitude primitives for the presence core:
// a normalized voice level in [0,1] and an RMS meter that produces it
// from raw PCM chunks.
package audio

import (
	"math"
	"sync"
)

// Level is a normalized voice-energy sample in [0,1]. Samples carry no
// identity and are discarded each tick.
type Level = float64

// Sanitize collapses any invalid scalar to a safe value before it can
// drive layout or color parameters. NaN, Inf and negatives become 0,
// values above 1 clamp to 1.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MeterConfig configures the level meter.
type MeterConfig struct {
	// SmoothingFrames is the size of the moving-average window (default 5).
	SmoothingFrames int
	// BitDepth of incoming PCM: 16, 32 (float) or 8 (default 16).
	BitDepth int
}

// DefaultMeterConfig returns sensible defaults.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{
		SmoothingFrames: 5,
		BitDepth:        16,
	}
}

// Meter converts raw PCM chunks into a smoothed Level. It keeps a small
// circular history for the moving average and nothing else.
type Meter struct {
	mu  sync.Mutex
	cfg MeterConfig

	history []float64
	index   int
	current float64
}

// NewMeter creates a Meter with the given config.
func NewMeter(cfg MeterConfig) *Meter {
	if cfg.SmoothingFrames <= 0 {
		cfg.SmoothingFrames = DefaultMeterConfig().SmoothingFrames
	}
	if cfg.BitDepth == 0 {
		cfg.BitDepth = DefaultMeterConfig().BitDepth
	}
	return &Meter{
		cfg:     cfg,
		history: make([]float64, cfg.SmoothingFrames),
	}
}

// Process ingests one PCM chunk and returns the smoothed level.
func (m *Meter) Process(pcm []byte) Level {
	m.mu.Lock()
	defer m.mu.Unlock()

	rms := rmsEnergy(pcm, m.cfg.BitDepth)

	m.history[m.index] = rms
	m.index = (m.index + 1) % len(m.history)

	var sum float64
	for _, e := range m.history {
		sum += e
	}
	m.current = Sanitize(sum / float64(len(m.history)))
	return m.current
}

// Current returns the most recent smoothed level.
func (m *Meter) Current() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Reset clears the smoothing window.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = 0
	m.current = 0
	for i := range m.history {
		m.history[i] = 0
	}
}

// rmsEnergy computes root-mean-square energy of a PCM chunk, normalized
// to [0,1] by sample range.
func rmsEnergy(pcm []byte, bitDepth int) float64 {
	if len(pcm) == 0 {
		return 0
	}

	var sum float64
	var count int

	switch bitDepth {
	case 16:
		for i := 0; i+1 < len(pcm); i += 2 {
			sample := int16(pcm[i]) | int16(pcm[i+1])<<8
			n := float64(sample) / 32768.0
			sum += n * n
			count++
		}
	case 32:
		for i := 0; i+3 < len(pcm); i += 4 {
			bits := uint32(pcm[i]) | uint32(pcm[i+1])<<8 | uint32(pcm[i+2])<<16 | uint32(pcm[i+3])<<24
			sample := math.Float32frombits(bits)
			sum += float64(sample * sample)
			count++
		}
	default:
		for _, b := range pcm {
			n := (float64(b) - 128.0) / 128.0
			sum += n * n
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}
