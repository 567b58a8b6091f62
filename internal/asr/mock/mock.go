// Package mock provides a deterministic test double for asr.Engine.
package mock

import (
	"context"
	"sync"

	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// TranscribeCall records a single invocation of Engine.Transcribe.
type TranscribeCall struct {
	// Samples is a copy of the slice passed to Transcribe.
	Samples    []float32
	SampleRate int
}

// Engine is a mock implementation of asr.Engine.
type Engine struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call. If ResultFunc is set it
	// takes precedence.
	Result sttypes.TranscriptionResult

	// ResultFunc, if non-nil, computes the result for each call from the
	// submitted samples instead of returning the fixed Result.
	ResultFunc func(samples []float32, sampleRate int) sttypes.TranscriptionResult

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// SetLanguageErr, if non-nil, is returned by every SetLanguage call.
	SetLanguageErr error

	// ShutdownErr, if non-nil, is returned by Shutdown.
	ShutdownErr error

	// --- call records ---

	TranscribeCalls   []TranscribeCall
	LanguageCalls     []string
	ShutdownCallCount int
}

// Transcribe records the call and returns Result (or ResultFunc's output),
// TranscribeErr.
func (e *Engine) Transcribe(_ context.Context, samples []float32, sampleRate int) (sttypes.TranscriptionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := make([]float32, len(samples))
	copy(cp, samples)
	e.TranscribeCalls = append(e.TranscribeCalls, TranscribeCall{Samples: cp, SampleRate: sampleRate})

	if e.TranscribeErr != nil {
		return sttypes.TranscriptionResult{}, e.TranscribeErr
	}
	if e.ResultFunc != nil {
		return e.ResultFunc(samples, sampleRate), nil
	}
	return e.Result, nil
}

// SetLanguage records the call and returns SetLanguageErr.
func (e *Engine) SetLanguage(language string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.LanguageCalls = append(e.LanguageCalls, language)
	return e.SetLanguageErr
}

// Shutdown records the call and returns ShutdownErr.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ShutdownCallCount++
	return e.ShutdownErr
}

// Reset clears all recorded call history. Thread-safe.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.TranscribeCalls = nil
	e.LanguageCalls = nil
	e.ShutdownCallCount = 0
}
