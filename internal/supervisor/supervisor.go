// Package supervisor wires the Audio Source, VAD Segmenter, Utterance
// Queue, ASR Worker, and Broadcast Hub into a running pipeline, and applies
// the control surface's commands to it: pause/resume, hot config reload,
// and metrics/status reporting.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rt-stt/rt-stt/internal/asr"
	"github.com/rt-stt/rt-stt/internal/audio"
	"github.com/rt-stt/rt-stt/internal/broadcast"
	"github.com/rt-stt/rt-stt/internal/config"
	"github.com/rt-stt/rt-stt/internal/control"
	"github.com/rt-stt/rt-stt/internal/queue"
	"github.com/rt-stt/rt-stt/internal/vad"
	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// Supervisor owns the Configuration snapshot and the lifetime of every
// pipeline component built from it. It implements control.Dispatcher so
// the control surface can drive it directly.
type Supervisor struct {
	registry     *config.Registry
	asrBackend   string
	audioBackend string

	mu        sync.RWMutex
	snapshot  config.Snapshot
	device    audio.Device
	segmenter *vad.Segmenter
	engine    asr.Engine

	hub    *broadcast.Hub
	queue  *queue.Queue
	worker *asr.Worker

	// reopen is signalled after ApplyConfig swaps the audio device, telling
	// pumpAudio to close out its current read loop and open the new one.
	reopen chan struct{}

	paused atomic.Bool

	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New, used to inject test doubles for
// the ASR engine or audio device instead of building them from the
// registry.
type Option func(*Supervisor)

// WithEngine injects an ASR engine instead of building one from the
// registry.
func WithEngine(e asr.Engine) Option {
	return func(s *Supervisor) { s.engine = e }
}

// WithDevice injects an audio device instead of building one from the
// registry.
func WithDevice(d audio.Device) Option {
	return func(s *Supervisor) { s.device = d }
}

// New builds a Supervisor from an initial Configuration snapshot, wiring an
// ASR engine and audio device from registry using asrBackend/audioBackend,
// unless overridden with WithEngine/WithDevice.
func New(snapshot config.Snapshot, registry *config.Registry, asrBackend, audioBackend string, hub *broadcast.Hub, opts ...Option) (*Supervisor, error) {
	s := &Supervisor{
		registry:     registry,
		asrBackend:   asrBackend,
		audioBackend: audioBackend,
		snapshot:     snapshot,
		hub:          hub,
		queue:        queue.New(queue.DefaultCapacity),
		reopen:       make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}

	if err := s.initEngine(); err != nil {
		return nil, fmt.Errorf("supervisor: init engine: %w", err)
	}
	if err := s.initDevice(); err != nil {
		return nil, fmt.Errorf("supervisor: init device: %w", err)
	}
	if err := s.initSegmenter(); err != nil {
		return nil, fmt.Errorf("supervisor: init segmenter: %w", err)
	}
	s.initWorker()

	return s, nil
}

func (s *Supervisor) initEngine() error {
	if s.engine != nil {
		return nil
	}
	eng, err := s.registry.CreateASR(s.asrBackend, s.snapshot.Model)
	if err != nil {
		return err
	}
	s.engine = eng
	s.closers = append(s.closers, eng.Shutdown)
	return nil
}

func (s *Supervisor) initDevice() error {
	if s.device != nil {
		return nil
	}
	dev, err := s.registry.CreateAudio(s.audioBackend, s.snapshot.Audio)
	if err != nil {
		return err
	}
	s.device = dev
	s.closers = append(s.closers, dev.Close)
	return nil
}

func (s *Supervisor) initSegmenter() error {
	seg, err := vad.New(s.snapshot.VAD)
	if err != nil {
		return err
	}
	s.segmenter = seg
	return nil
}

func (s *Supervisor) initWorker() {
	s.worker, _ = asr.NewWorker(asr.Config{
		Engine:    s.engine,
		Source:    s.queue,
		Publisher: s.hub,
	})
	s.closers = append(s.closers, func() error {
		s.queue.Close()
		return nil
	})
}

// Run starts the audio pump and the ASR worker and blocks until ctx is
// cancelled or a component fails irrecoverably.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.pumpAudio(gctx) })
	g.Go(func() error { return s.worker.Run(gctx) })

	slog.Info("supervisor running")
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pumpAudio opens the current audio device and reads frames from it,
// running each through the current VAD segmenter and pushing completed
// utterances onto the queue. Frames received while paused are dropped
// before reaching the segmenter, per the pause/resume contract. When
// ApplyConfig swaps the device (an AudioChanged config change), pumpAudio
// closes out the current generation and opens the replacement.
func (s *Supervisor) pumpAudio(ctx context.Context) error {
	for {
		dev := s.currentDevice()
		if err := dev.Open(ctx); err != nil {
			return fmt.Errorf("supervisor: open audio device: %w", err)
		}

		restart, err := s.pumpGeneration(ctx, dev.Frames())
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}
	}
}

// pumpGeneration drains one device's frame channel until it closes, ctx is
// cancelled, or a reopen is signalled. restart is true when the caller
// should open the next device generation and keep pumping.
func (s *Supervisor) pumpGeneration(ctx context.Context, frames <-chan sttypes.Frame) (restart bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-s.reopen:
			return true, nil
		case frame, ok := <-frames:
			if !ok {
				return false, nil
			}
			if s.paused.Load() {
				continue
			}
			event, err := s.currentSegmenter().Process(frame)
			if err != nil {
				slog.Error("supervisor: vad processing failed", "error", err)
				continue
			}
			if event.Type != vad.EventSpeechEnd {
				continue
			}
			if err := s.queue.Push(event.Utterance); err != nil {
				slog.Warn("supervisor: dropping utterance, queue closed", "error", err)
			}
		}
	}
}

// Shutdown runs every registered closer in order, stopping once ctx's
// deadline is exceeded. Safe to call more than once; only the first call
// has effect.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.stopOnce.Do(func() {
		slog.Info("supervisor shutting down", "closers", len(s.closers))
		for i, closer := range s.closers {
			select {
			case <-ctx.Done():
				slog.Warn("supervisor: shutdown deadline exceeded", "remaining", len(s.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("supervisor: closer error", "index", i, "error", err)
			}
		}
		slog.Info("supervisor shutdown complete")
	})
	return shutdownErr
}

func (s *Supervisor) currentDevice() audio.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

func (s *Supervisor) currentSegmenter() *vad.Segmenter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.segmenter
}

func (s *Supervisor) currentSnapshot() config.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Pause drops incoming audio frames before they reach the VAD segmenter,
// leaving any in-flight utterance in the queue to drain normally.
func (s *Supervisor) Pause() {
	s.paused.Store(true)
	s.hub.PublishStatus(true, "paused via control command")
}

// Resume clears the VAD segmenter's state (including its pre-speech ring
// buffer) and resumes feeding it frames, so a stale in-progress candidate
// from before the pause is never resurrected.
func (s *Supervisor) Resume() {
	s.currentSegmenter().Reset()
	s.paused.Store(false)
	s.hub.PublishStatus(false, "resumed via control command")
}

// Paused reports whether the pipeline is currently dropping audio frames.
func (s *Supervisor) Paused() bool {
	return s.paused.Load()
}

// Status answers the get_status control command.
func (s *Supervisor) Status() control.StatusResponse {
	snap := s.currentSnapshot()
	return control.StatusResponse{
		Paused:      s.Paused(),
		Language:    snap.Language,
		ModelPath:   snap.Model.Path,
		Subscribers: s.hub.Count(),
	}
}

// Metrics answers the get_metrics control command.
func (s *Supervisor) Metrics() asr.Snapshot {
	return s.worker.Stats()
}

// Config answers the get_config control command.
func (s *Supervisor) Config() config.Snapshot {
	return s.currentSnapshot()
}
