package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Matheo93/eva-presence/internal/turn"
)

var (
	skinColor  = mgl32.Vec4{0.96, 0.82, 0.72, 1}
	mouthColor = mgl32.Vec4{0.72, 0.3, 0.32, 1}
	eyeColor   = mgl32.Vec4{0.16, 0.2, 0.28, 1}
)

// mouthLayer builds the mouth layer shared by all tiers. Openness drives
// vertical scale, width shifts horizontal scale around a unit base.
func mouthLayer(in FrameInput) Layer {
	openness := sanitize32(float32(in.Mouth.Openness))
	width := sanitize32(float32(in.Mouth.Width))

	return Layer{
		Name:     "mouth",
		Color:    mouthColor,
		Position: mgl32.Vec2{0, -0.35},
		Scale:    mgl32.Vec2{1 + width*0.25, 0.1 + openness*0.9},
		Opacity:  1,
	}
}

func faceLayer(scale float32) Layer {
	return Layer{
		Name:    "face",
		Color:   skinColor,
		Scale:   mgl32.Vec2{scale, scale},
		Opacity: 1,
	}
}

// LowTier paints the minimum: a static face and the mouth. No blink, no
// breathing, no glow — throughput over fidelity.
type LowTier struct{}

func (LowTier) Tier() QualityTier { return TierLow }

func (LowTier) Render(in FrameInput, rig *RigState) Frame {
	return Frame{
		Tier: TierLow,
		Layers: []Layer{
			faceLayer(1),
			mouthLayer(in),
		},
	}
}

// MediumTier adds eyes with blink and a breathing face scale.
type MediumTier struct{}

func (MediumTier) Tier() QualityTier { return TierMedium }

func (MediumTier) Render(in FrameInput, rig *RigState) Frame {
	breath := rig.BreathingOffset() * 0.015
	blink := rig.BlinkAmount()

	eyes := Layer{
		Name:     "eyes",
		Color:    eyeColor,
		Position: mgl32.Vec2{0, 0.25},
		Scale:    mgl32.Vec2{1, 1 - blink*0.95},
		Opacity:  1,
	}

	brow := Layer{
		Name:     "brow",
		Color:    eyeColor,
		Position: mgl32.Vec2{0, 0.45},
		Scale:    mgl32.Vec2{1, 1},
		Opacity:  browOpacity(in.Turn),
	}

	return Frame{
		Tier: TierMedium,
		Layers: []Layer{
			faceLayer(1 + breath),
			eyes,
			brow,
			mouthLayer(in),
		},
	}
}

// HighTier carries the full stack: emotion-tinted back glow, an
// audio-reactive halo, breathing face, eyes with blink, brow and mouth.
type HighTier struct{}

func (HighTier) Tier() QualityTier { return TierHigh }

func (HighTier) Render(in FrameInput, rig *RigState) Frame {
	amp := sanitize32(float32(in.Amplitude))
	breath := rig.BreathingOffset() * 0.015
	blink := rig.BlinkAmount()

	glow := Layer{
		Name:    "glow",
		Color:   emotionTint(in.Emotion),
		Scale:   mgl32.Vec2{1.3, 1.3},
		Opacity: 0.35 + 0.1*rig.BreathingOffset(),
	}

	halo := Layer{
		Name:    "halo",
		Color:   haloColor(in.Turn),
		Scale:   mgl32.Vec2{1.15 + amp*0.3, 1.15 + amp*0.3},
		Opacity: 0.25 + amp*0.5,
	}

	eyes := Layer{
		Name:     "eyes",
		Color:    eyeColor,
		Position: mgl32.Vec2{0, 0.25},
		Scale:    mgl32.Vec2{1, 1 - blink*0.95},
		Opacity:  1,
	}

	brow := Layer{
		Name:     "brow",
		Color:    eyeColor,
		Position: mgl32.Vec2{0, 0.45},
		Scale:    mgl32.Vec2{1, 1},
		Opacity:  browOpacity(in.Turn),
	}

	return Frame{
		Tier: TierHigh,
		Layers: []Layer{
			glow,
			halo,
			faceLayer(1 + breath),
			eyes,
			brow,
			mouthLayer(in),
		},
	}
}

// haloColor shifts the halo with the conversational floor so the cue is
// visible even before any audio arrives.
func haloColor(state turn.State) mgl32.Vec4 {
	switch state {
	case turn.StateUserSpeaking, turn.StateUserPausing:
		return mgl32.Vec4{0.45, 0.8, 0.6, 1}
	case turn.StateEvaSpeaking:
		return mgl32.Vec4{0.55, 0.65, 0.95, 1}
	case turn.StateTRPDetected, turn.StateEvaPreparing:
		return mgl32.Vec4{0.85, 0.75, 0.5, 1}
	case turn.StateEvaYielding:
		return mgl32.Vec4{0.7, 0.6, 0.85, 1}
	default:
		return mgl32.Vec4{0.6, 0.6, 0.65, 1}
	}
}

// browOpacity raises the brow line while the counterpart prepares,
// signalling attention without a full expression rig.
func browOpacity(state turn.State) float32 {
	switch state {
	case turn.StateEvaPreparing, turn.StateTRPDetected:
		return 1
	default:
		return 0.6
	}
}
