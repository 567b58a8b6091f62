package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rt-stt/rt-stt/internal/asr/cleanup"
	"github.com/rt-stt/rt-stt/internal/resilience"
	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// ErrCircuitOpen is wrapped into the error the worker logs for an utterance
// when the engine has failed repeatedly and the circuit breaker is rejecting
// calls. It is the same value as resilience.ErrCircuitOpen, so callers can
// match on either.
var ErrCircuitOpen = resilience.ErrCircuitOpen

// Source supplies utterances for the worker to transcribe. internal/queue
// satisfies this with its bounded MPSC pop.
type Source interface {
	Pop(ctx context.Context) (sttypes.Utterance, bool)
}

// Publisher receives completed transcription results for fan-out.
// internal/broadcast satisfies this with Hub.Publish.
type Publisher interface {
	Publish(sttypes.TranscriptionResult)
}

// Worker pulls utterances from a Source, transcribes them with an Engine
// behind a circuit breaker, cleans the result, records metrics, and hands
// the result to a Publisher. It is the runtime loop for the ASR Worker
// component.
type Worker struct {
	engineMu sync.RWMutex
	engine   Engine

	source    Source
	publisher Publisher
	breaker   *resilience.CircuitBreaker
	cleaner   *cleanup.Filter
	stats     *Stats
}

// Config configures a Worker's dependencies and circuit breaker behaviour.
type Config struct {
	Engine    Engine
	Source    Source
	Publisher Publisher

	// MaxFailures is the number of consecutive transcription failures that
	// opens the circuit. Defaults to 5.
	MaxFailures int
	// ResetTimeout is how long the circuit stays open before allowing a
	// half-open trial call. Defaults to 30s.
	ResetTimeout time.Duration
}

// NewWorker constructs a Worker from cfg. Engine, Source, and Publisher must
// all be non-nil.
func NewWorker(cfg Config) (*Worker, error) {
	if cfg.Engine == nil {
		return nil, errors.New("asr: engine must not be nil")
	}
	if cfg.Source == nil {
		return nil, errors.New("asr: source must not be nil")
	}
	if cfg.Publisher == nil {
		return nil, errors.New("asr: publisher must not be nil")
	}

	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	return &Worker{
		engine:    cfg.Engine,
		source:    cfg.Source,
		publisher: cfg.Publisher,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         "asr-engine",
			MaxFailures:  maxFailures,
			ResetTimeout: resetTimeout,
		}),
		cleaner: cleanup.New(),
		stats:   NewStats(100),
	}, nil
}

// Run pulls utterances from the source and processes them until ctx is
// cancelled or the source reports closed. It is the ASR Worker's single
// goroutine loop and returns nil on clean shutdown.
func (w *Worker) Run(ctx context.Context) error {
	for {
		utt, ok := w.source.Pop(ctx)
		if !ok {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := w.process(ctx, utt); err != nil {
			slog.Error("asr worker: transcription failed", "error", err)
		}
	}
}

// process runs one utterance through the breaker-wrapped engine, cleans the
// text, records stats, and publishes a result. Errors from the engine or an
// open circuit are logged by the caller and do not stop the loop — dropping
// one utterance must never take down the pipeline.
func (w *Worker) process(ctx context.Context, utt sttypes.Utterance) error {
	start := time.Now()

	var result sttypes.TranscriptionResult
	err := w.breaker.Execute(func() error {
		var innerErr error
		result, innerErr = w.currentEngine().Transcribe(ctx, utt.Samples, utt.SampleRate)
		return innerErr
	})

	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			w.stats.RecordCircuitOpen()
			return fmt.Errorf("asr: %w", ErrCircuitOpen)
		}
		w.stats.RecordError()
		return fmt.Errorf("asr: transcribe: %w", err)
	}

	result.Text = w.cleaner.Clean(result.Text)
	result.ProcessingTime = time.Since(start)
	result.AudioDuration = utt.Duration()

	w.stats.RecordTranscription(result.ProcessingTime, result.RTF())
	if result.Text == "" {
		// Cleanup stripped the utterance down to nothing (e.g. a pure
		// hallucinated filler phrase); nothing to publish.
		return nil
	}
	w.publisher.Publish(result)
	return nil
}

// Stats returns the worker's live metrics snapshot, used to answer the
// get_metrics control command.
func (w *Worker) Stats() Snapshot {
	return w.stats.Snapshot()
}

// SetLanguage forwards a runtime language change to the underlying engine.
// The supervisor calls this from the control-command path, which is not
// synchronised with the worker loop, so it can arrive while a transcription
// is in progress.
func (w *Worker) SetLanguage(language string) error {
	return w.currentEngine().SetLanguage(language)
}

// SetEngine swaps the engine a running Worker transcribes with, e.g. after a
// set_model control command reloads the backend. The caller is responsible
// for shutting down the replaced engine once it is safe to do so.
func (w *Worker) SetEngine(engine Engine) {
	w.engineMu.Lock()
	w.engine = engine
	w.engineMu.Unlock()
}

func (w *Worker) currentEngine() Engine {
	w.engineMu.RLock()
	defer w.engineMu.RUnlock()
	return w.engine
}
