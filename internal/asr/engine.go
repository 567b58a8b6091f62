// Package asr defines the Engine interface implemented by speech-to-text
// backends and the Worker that drives utterances through one.
//
// Engine is the narrow collaborator contract a backend must satisfy: load a
// model once, transcribe a single utterance at a time, and accept a runtime
// language override. Concrete backends live in subpackages (native, mock) so
// that callers depend only on this interface.
package asr

import (
	"context"

	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// Engine transcribes complete utterances of PCM audio. A single Engine
// instance holds one loaded model at a time; swapping models means
// constructing a new Engine and discarding the old one.
//
// Implementations must be safe for concurrent use: the worker may invoke
// Transcribe from only one goroutine at a time in practice, but SetLanguage
// may race with an in-flight Transcribe call during a config reload.
type Engine interface {
	// Transcribe runs inference over samples (mono, normalised to
	// [-1.0, 1.0]) captured at sampleRate and returns the recognised text
	// and segment detail. The context may be used to bound inference time;
	// implementations that cannot cancel mid-inference may ignore it.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (sttypes.TranscriptionResult, error)

	// SetLanguage changes the language hint used by subsequent Transcribe
	// calls. An empty string requests automatic language detection.
	SetLanguage(language string) error

	// Shutdown releases all resources held by the engine (loaded model,
	// native contexts). Calling Shutdown more than once is safe and returns
	// nil on subsequent calls.
	Shutdown() error
}
