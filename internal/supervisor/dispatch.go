package supervisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rt-stt/rt-stt/internal/control"
)

// Dispatch implements control.Dispatcher, executing the command taxonomy
// the control socket exposes.
func (s *Supervisor) Dispatch(_ context.Context, cmd control.Message) (any, error) {
	switch cmd.Type {
	case control.CommandPause:
		s.Pause()
		return nil, nil

	case control.CommandResume:
		s.Resume()
		return nil, nil

	case control.CommandGetStatus:
		return s.Status(), nil

	case control.CommandGetConfig:
		return s.Config(), nil

	case control.CommandGetMetrics:
		return s.Metrics(), nil

	case control.CommandSetLanguage:
		var req control.SetLanguageRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return nil, fmt.Errorf("supervisor: decode set_language: %w", err)
		}
		next := s.currentSnapshot()
		next.Model.Language = req.Language
		next.Language = req.Language
		return s.ApplyConfig(next)

	case control.CommandSetModel:
		var req control.SetModelRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return nil, fmt.Errorf("supervisor: decode set_model: %w", err)
		}
		next := s.currentSnapshot()
		next.Model.Path = req.ModelPath
		return s.ApplyConfig(next)

	case control.CommandSetVADSensitivity:
		var req control.SetVADSensitivityRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return nil, fmt.Errorf("supervisor: decode set_vad_sensitivity: %w", err)
		}
		next := s.currentSnapshot()
		if req.SpeechStartThreshold != 0 {
			next.VAD.SpeechStartThreshold = req.SpeechStartThreshold
		}
		if req.SpeechEndThreshold != 0 {
			next.VAD.SpeechEndThreshold = req.SpeechEndThreshold
		}
		return s.ApplyConfig(next)

	case control.CommandSetConfig:
		var req control.SetConfigRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return nil, fmt.Errorf("supervisor: decode set_config: %w", err)
		}
		next := s.currentSnapshot()
		next.Model = req.Model
		next.Language = req.Model.Language
		next.VAD = req.VAD
		next.Audio = req.Audio
		return s.ApplyConfig(next)

	default:
		return nil, fmt.Errorf("supervisor: unknown command %q", cmd.Type)
	}
}
