// Package render turns paced presence signals into avatar frames. The
// tier decides how many visual layers a frame carries; the tier itself is
// assigned by an external monitor and is only ever obeyed here.
package render

import (
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Matheo93/eva-presence/internal/turn"
	"github.com/Matheo93/eva-presence/internal/viseme"
)

// QualityTier is a discrete rendering-complexity level. It may change at
// any time and must never be cached beyond one render pass.
type QualityTier string

const (
	TierLow    QualityTier = "low"
	TierMedium QualityTier = "medium"
	TierHigh   QualityTier = "high"
)

// ParseTier maps a string to a tier, defaulting unknown values to low so
// a garbled assignment degrades fidelity rather than crashing a frame.
func ParseTier(s string) QualityTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return TierHigh
	case "medium", "mid":
		return TierMedium
	default:
		return TierLow
	}
}

// Emotion is the label supplied by the counterpart's affect channel.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionThinking  Emotion = "thinking"
	EmotionConfused  Emotion = "confused"
	EmotionExcited   Emotion = "excited"
	EmotionSurprised Emotion = "surprised"
)

// emotionTint maps an emotion to the glow tint used by the high tier.
func emotionTint(e Emotion) mgl32.Vec4 {
	switch e {
	case EmotionHappy:
		return mgl32.Vec4{1.0, 0.85, 0.4, 1}
	case EmotionSad:
		return mgl32.Vec4{0.4, 0.55, 0.9, 1}
	case EmotionThinking:
		return mgl32.Vec4{0.6, 0.5, 0.9, 1}
	case EmotionConfused:
		return mgl32.Vec4{0.8, 0.6, 0.4, 1}
	case EmotionExcited:
		return mgl32.Vec4{1.0, 0.5, 0.45, 1}
	case EmotionSurprised:
		return mgl32.Vec4{0.95, 0.9, 0.6, 1}
	default:
		return mgl32.Vec4{0.75, 0.75, 0.8, 1}
	}
}

// FrameInput is the identical input set every tier consumes: the paced
// mouth shape and amplitude, the current turn state, the emotion label,
// and the frame delta. DT is seconds.
type FrameInput struct {
	Mouth     viseme.MouthShape
	Amplitude float64
	Turn      turn.State
	Emotion   Emotion
	DT        float32
	Now       time.Time
}

// Layer is one paint layer of an avatar frame, ordered back to front.
type Layer struct {
	Name     string
	Color    mgl32.Vec4
	Position mgl32.Vec2
	Scale    mgl32.Vec2
	Opacity  float32
}

// Frame is the ordered layer list handed to the hosting paint surface.
type Frame struct {
	Tier   QualityTier
	Layers []Layer
}

// LayerCount returns the number of layers in the frame.
func (f Frame) LayerCount() int { return len(f.Layers) }

// Strategy renders one frame for one tier. Implementations hold no state
// other tiers need; anything persistent lives in RigState above the
// tier boundary.
type Strategy interface {
	Tier() QualityTier
	Render(in FrameInput, rig *RigState) Frame
}
