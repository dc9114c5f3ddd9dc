// Package dialogue binds the presence core's consumed contracts to a
// WebSocket feed: counterpart dialogue flags, per-frame viseme weights,
// the voice level, and the emotion label.
package dialogue

import "time"

// State holds the counterpart's dialogue flags. The caller is expected
// to keep isSpeaking/isListening/isThinking mutually exclusive; the turn
// engine resolves violations with its own tie-break.
type State struct {
	IsSpeaking         bool `json:"isSpeaking"`
	IsListening        bool `json:"isListening"`
	IsThinking         bool `json:"isThinking"`
	HasPendingResponse bool `json:"hasPendingResponse"`
}

// stateMessage carries a dialogue-flag update.
type stateMessage struct {
	Type  string `json:"type"`
	State State  `json:"state"`
}

// visemeMessage carries one frame of viseme weights.
type visemeMessage struct {
	Type    string             `json:"type"`
	Weights map[string]float64 `json:"weights"`
}

// levelMessage carries one amplitude sample.
type levelMessage struct {
	Type  string  `json:"type"`
	Level float64 `json:"level"`
}

// emotionMessage carries the counterpart's emotion label.
type emotionMessage struct {
	Type    string `json:"type"`
	Emotion string `json:"emotion"`
}

// Snapshot is the latest value of every feed channel plus when the last
// message of any kind arrived, so consumers can judge staleness.
type Snapshot struct {
	State      State
	Weights    map[string]float64
	Level      float64
	Emotion    string
	LastUpdate time.Time
}
