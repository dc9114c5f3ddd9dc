// Package viseme holds the per-frame viseme weights delivered by the
// speech-to-viseme collaborator and derives the avatar's mouth shape
// from them.
package viseme

import (
	"math"
)

// Canonical weight keys. The source alphabet may carry more shapes; the
// derivation only reads these four.
const (
	KeyAA  = "AA"
	KeyEE  = "EE"
	KeyOO  = "OO"
	KeySil = "sil"
)

// Weights maps phonetic shape id to intensity in [0,1]. Order is
// irrelevant and absent keys read as 0. Values are ephemeral, replaced
// every frame.
type Weights map[string]float64

// Get returns a sanitized weight: absent keys and invalid numbers read
// as 0, values clamp into [0,1].
func (w Weights) Get(key string) float64 {
	if w == nil {
		return 0
	}
	v, ok := w[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MouthShape is the derived articulation target: openness in [0,1.5],
// width in [-1,1]. Both fields are pure derived values, recomputed every
// tick and never set directly.
type MouthShape struct {
	Openness float64
	Width    float64
}

// Closed is the rest shape.
var Closed = MouthShape{}

// Articulation gating: amplitude below this never opens the mouth even
// while speaking.
const minAudibleLevel = 0.05

// Derive computes the mouth shape from the current weights, raw
// amplitude and the speaking flag. It is stateless and idempotent:
// identical inputs always yield bit-identical output.
func Derive(w Weights, amplitude float64, speaking bool) MouthShape {
	amp := sanitize(amplitude)
	if !speaking || amp < minAudibleLevel {
		return Closed
	}

	aa := w.Get(KeyAA)
	ee := w.Get(KeyEE)
	oo := w.Get(KeyOO)
	sil := w.Get(KeySil)

	openness := clamp01((aa*0.8+ee*0.4+oo*0.6)*2.5+amp*0.5) * (1 - sil)
	width := (ee*0.5 - oo*0.3) * (1 - sil)

	return MouthShape{Openness: openness, Width: width}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
