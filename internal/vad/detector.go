// Package vad implements energy-based voice activity detection and
// utterance segmentation.
//
// Detector is kept as a narrow interface, separate from the concrete
// Segmenter, purely so a future spectral or model-based detector could slot
// in without touching the Audio Source wiring — today Segmenter is the only
// implementation.
package vad

import "github.com/rt-stt/rt-stt/pkg/sttypes"

// EventType classifies a speech boundary crossing reported by a Detector.
type EventType int

const (
	// EventNone indicates no boundary was crossed on this frame.
	EventNone EventType = iota
	// EventSpeechStart indicates speech has just been confirmed.
	EventSpeechStart
	// EventSpeechEnd indicates speech has just ended; the completed
	// utterance is attached to the Event.
	EventSpeechEnd
)

// Event is the result of processing a single frame.
type Event struct {
	Type      EventType
	Utterance sttypes.Utterance
}

// Detector analyses a stream of frames and reports speech start/end
// boundaries. Implementations must be safe to call from a single goroutine
// only — the Audio Source delivers frames serially and Process must not
// block.
type Detector interface {
	// Process analyses frame and returns the boundary event, if any, that
	// frame produced.
	Process(frame sttypes.Frame) (Event, error)

	// Reset clears all accumulated state (noise floor, ring buffer,
	// in-progress utterance) without releasing resources. Used on
	// control-surface-driven resume.
	Reset()
}
