package supervisor

import (
	"fmt"
	"log/slog"

	"github.com/rt-stt/rt-stt/internal/config"
	"github.com/rt-stt/rt-stt/internal/vad"
)

// ApplyConfig transitions the pipeline to newSnapshot, reloading only the
// components a config.Diff says actually changed. It is safe to call while
// Run is active; changes take effect for the next frame/utterance the
// affected component sees.
func (s *Supervisor) ApplyConfig(newSnapshot config.Snapshot) (config.SnapshotDiff, error) {
	old := s.currentSnapshot()
	diff := config.Diff(old, newSnapshot)

	switch {
	case diff.LanguageOnlyChanged:
		if err := s.worker.SetLanguage(newSnapshot.Language); err != nil {
			return diff, fmt.Errorf("supervisor: set language: %w", err)
		}
	case diff.ModelChanged:
		if err := s.reloadEngine(newSnapshot); err != nil {
			return diff, err
		}
	}

	if diff.VADChanged {
		if err := s.reloadSegmenter(newSnapshot); err != nil {
			return diff, err
		}
	}

	if diff.AudioChanged {
		if err := s.reloadDevice(newSnapshot); err != nil {
			return diff, err
		}
	}

	if diff.SocketPathChanged {
		slog.Warn("supervisor: ipc.socket_path changed but the control socket is bound once at startup; restart to apply it")
	}

	s.mu.Lock()
	s.snapshot = newSnapshot
	s.mu.Unlock()
	return diff, nil
}

func (s *Supervisor) reloadEngine(newSnapshot config.Snapshot) error {
	eng, err := s.registry.CreateASR(s.asrBackend, newSnapshot.Model)
	if err != nil {
		return fmt.Errorf("supervisor: reload asr engine: %w", err)
	}

	s.mu.Lock()
	old := s.engine
	s.engine = eng
	s.mu.Unlock()

	s.worker.SetEngine(eng)

	if old != nil {
		if err := old.Shutdown(); err != nil {
			slog.Warn("supervisor: shutting down replaced asr engine", "error", err)
		}
	}
	return nil
}

func (s *Supervisor) reloadSegmenter(newSnapshot config.Snapshot) error {
	seg, err := vad.New(newSnapshot.VAD)
	if err != nil {
		return fmt.Errorf("supervisor: rebuild vad segmenter: %w", err)
	}
	s.mu.Lock()
	s.segmenter = seg
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) reloadDevice(newSnapshot config.Snapshot) error {
	dev, err := s.registry.CreateAudio(s.audioBackend, newSnapshot.Audio)
	if err != nil {
		return fmt.Errorf("supervisor: reload audio device: %w", err)
	}

	s.mu.Lock()
	old := s.device
	s.device = dev
	s.mu.Unlock()

	select {
	case s.reopen <- struct{}{}:
	default:
	}

	if old != nil {
		if err := old.Close(); err != nil {
			slog.Warn("supervisor: closing replaced audio device", "error", err)
		}
	}
	return nil
}
