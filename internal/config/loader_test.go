package config_test

import (
	"strings"
	"testing"

	"github.com/rt-stt/rt-stt/internal/config"
)

func TestValidate_RejectsNegativeVADDurations(t *testing.T) {
	t.Parallel()
	yaml := `
ipc:
  socket_path: /tmp/rt-stt.sock
stt:
  vad:
    speech_start_ms: 0
    speech_end_ms: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid VAD durations, got nil")
	}
	if !strings.Contains(err.Error(), "speech_start_ms") {
		t.Errorf("error should mention speech_start_ms, got: %v", err)
	}
	if !strings.Contains(err.Error(), "speech_end_ms") {
		t.Errorf("error should mention speech_end_ms, got: %v", err)
	}
}

func TestValidate_RejectsOutOfRangeAdaptationRate(t *testing.T) {
	t.Parallel()
	yaml := `
ipc:
  socket_path: /tmp/rt-stt.sock
stt:
  vad:
    speech_start_ms: 90
    speech_end_ms: 500
    noise_floor_adaptation_rate: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range adaptation rate, got nil")
	}
}

func TestValidate_RejectsChannelIndexOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
ipc:
  socket_path: /tmp/rt-stt.sock
stt:
  audio:
    channels: 2
    force_single_channel: true
    input_channel_index: 5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range input_channel_index, got nil")
	}
}

func TestValidate_AcceptsDocumentedDefaults(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`ipc:
  socket_path: /tmp/rt-stt.sock
`))
	if err != nil {
		t.Fatalf("expected no error with only socket_path set, got: %v", err)
	}
}
