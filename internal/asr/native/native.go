// Package native implements asr.Engine on top of the whisper.cpp CGO
// bindings. The whisper.cpp static library and headers must be available at
// link time via LIBRARY_PATH and C_INCLUDE_PATH.
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/rt-stt/rt-stt/internal/config"
	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// Engine loads a whisper.cpp model once at construction and runs one
// transcription context per call to Transcribe. The underlying model may be
// shared across goroutines; whisper.cpp contexts may not, so Transcribe
// serialises inference behind a mutex.
type Engine struct {
	mu       sync.Mutex
	model    whisperlib.Model
	language string
	threads  int
	beamSize int
	temp     float64
}

// New loads the whisper.cpp model at cfg.Path and returns an Engine ready to
// transcribe. cfg.UseGPU is honoured only if the linked whisper.cpp build was
// compiled with GPU support; this package does not itself select a backend.
func New(cfg config.ModelConfig) (*Engine, error) {
	if cfg.Path == "" {
		return nil, errors.New("native: model path must not be empty")
	}
	model, err := whisperlib.New(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("native: load model %q: %w", cfg.Path, err)
	}

	threads := cfg.NThreads
	if threads <= 0 {
		threads = 4
	}
	beamSize := cfg.BeamSize
	if beamSize <= 0 {
		beamSize = 5
	}

	return &Engine{
		model:    model,
		language: cfg.Language,
		threads:  threads,
		beamSize: beamSize,
		temp:     cfg.Temperature,
	}, nil
}

// Transcribe runs whisper.cpp inference over samples. A fresh context is
// created for every call because whisper.cpp contexts are not reusable
// across independent runs with different language/threads settings and are
// not safe for concurrent Process calls.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (sttypes.TranscriptionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return sttypes.TranscriptionResult{}, fmt.Errorf("native: context already done: %w", err)
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return sttypes.TranscriptionResult{}, fmt.Errorf("native: create context: %w", err)
	}

	if e.language != "" && e.language != "auto" {
		if err := wctx.SetLanguage(e.language); err != nil {
			return sttypes.TranscriptionResult{}, fmt.Errorf("native: set language %q: %w", e.language, err)
		}
	}
	if setter, ok := any(wctx).(interface{ SetThreads(uint) }); ok {
		setter.SetThreads(uint(e.threads))
	}
	if setter, ok := any(wctx).(interface{ SetBeamSize(int) }); ok {
		setter.SetBeamSize(e.beamSize)
	}
	if setter, ok := any(wctx).(interface{ SetTemperature(float32) }); ok {
		setter.SetTemperature(float32(e.temp))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return sttypes.TranscriptionResult{}, fmt.Errorf("native: process audio: %w", err)
	}

	var (
		segments []sttypes.Segment
		parts    []string
		id       int
	)
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sttypes.TranscriptionResult{}, fmt.Errorf("native: read segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		segments = append(segments, sttypes.Segment{
			ID:    id,
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
		id++
	}

	return sttypes.TranscriptionResult{
		Text:     strings.Join(parts, " "),
		Language: e.language,
		IsFinal:  true,
		Segments: segments,
	}, nil
}

// SetLanguage changes the language hint applied to subsequent Transcribe
// calls. It takes effect immediately; there is no in-flight inference to
// interrupt because Transcribe holds the engine lock for its entire
// duration.
func (e *Engine) SetLanguage(language string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.language = language
	return nil
}

// Shutdown releases the loaded model. Safe to call more than once.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}
