package config_test

import (
	"strings"
	"testing"

	"github.com/rt-stt/rt-stt/internal/config"
)

const sampleYAML = `
server:
  log_level: info
  metrics_addr: "127.0.0.1:9090"

stt:
  model:
    path: /models/ggml-base.en.bin
    language: en
    use_gpu: true
    n_threads: 4
    beam_size: 5
    temperature: 0.0
  vad:
    energy_threshold: 450
    speech_start_ms: 90
    speech_end_ms: 500
    min_speech_ms: 250
    speech_start_threshold: 2.0
    speech_end_threshold: 1.5
    pre_speech_buffer_ms: 300
    noise_floor_adaptation_rate: 0.05
    use_adaptive_threshold: true
  audio:
    device_name: default
    sample_rate: 16000
    channels: 1
    buffer_size_ms: 30

ipc:
  socket_path: /tmp/rt-stt.sock
`

func TestLoadFromReader_ParsesFullConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.STT.Model.Path != "/models/ggml-base.en.bin" {
		t.Errorf("model.path: got %q", cfg.STT.Model.Path)
	}
	if cfg.STT.VAD.EnergyThreshold != 450 {
		t.Errorf("vad.energy_threshold: got %v", cfg.STT.VAD.EnergyThreshold)
	}
	if cfg.STT.Audio.SampleRate != 16000 {
		t.Errorf("audio.sample_rate: got %v", cfg.STT.Audio.SampleRate)
	}
	if cfg.IPC.SocketPath != "/tmp/rt-stt.sock" {
		t.Errorf("ipc.socket_path: got %q", cfg.IPC.SocketPath)
	}
}

func TestLoadFromReader_AppliesDefaultsForMissingKeys(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(`ipc:
  socket_path: /tmp/rt-stt.sock
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := config.Default()
	if cfg.STT.VAD != want.STT.VAD {
		t.Errorf("vad defaults not applied: got %+v, want %+v", cfg.STT.VAD, want.STT.VAD)
	}
	if cfg.STT.Audio != want.STT.Audio {
		t.Errorf("audio defaults not applied: got %+v, want %+v", cfg.STT.Audio, want.STT.Audio)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`stt:
  vadd:
    energy_threshold: 1
`))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_RejectsInvalidLogLevel(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`server:
  log_level: bananas
ipc:
  socket_path: /tmp/rt-stt.sock
`))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
}

func TestLoadFromReader_RejectsEmptySocketPath(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`ipc:
  socket_path: ""
`))
	if err == nil {
		t.Fatal("expected error for empty socket path, got nil")
	}
}

func TestSnapshotFrom(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := config.SnapshotFrom(cfg)
	if snap.SocketPath != cfg.IPC.SocketPath {
		t.Errorf("snapshot socket path: got %q, want %q", snap.SocketPath, cfg.IPC.SocketPath)
	}
	if snap.Language != cfg.STT.Model.Language {
		t.Errorf("snapshot language: got %q, want %q", snap.Language, cfg.STT.Model.Language)
	}
}
