package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, applies documented
// defaults for omitted keys, and returns a validated [Config]. It is a
// convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over top of [Default], so
// omitted keys retain documented defaults, and validates the result. Useful
// in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every validation failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.IPC.SocketPath == "" {
		errs = append(errs, errors.New("ipc.socket_path must not be empty"))
	}

	v := cfg.STT.VAD
	if v.EnergyThreshold < 0 {
		errs = append(errs, errors.New("stt.vad.energy_threshold must be >= 0"))
	}
	if v.SpeechStartMs <= 0 {
		errs = append(errs, errors.New("stt.vad.speech_start_ms must be > 0"))
	}
	if v.SpeechEndMs <= 0 {
		errs = append(errs, errors.New("stt.vad.speech_end_ms must be > 0"))
	}
	if v.MinSpeechMs < 0 {
		errs = append(errs, errors.New("stt.vad.min_speech_ms must be >= 0"))
	}
	if v.NoiseFloorAdaptationRate < 0 || v.NoiseFloorAdaptationRate > 1 {
		errs = append(errs, errors.New("stt.vad.noise_floor_adaptation_rate must be in [0, 1]"))
	}

	a := cfg.STT.Audio
	if a.SampleRate <= 0 {
		errs = append(errs, errors.New("stt.audio.sample_rate must be > 0"))
	}
	if a.Channels <= 0 {
		errs = append(errs, errors.New("stt.audio.channels must be > 0"))
	}
	if a.ForceSingleChannel && a.InputChannelIndex >= a.Channels {
		errs = append(errs, fmt.Errorf("stt.audio.input_channel_index %d is out of range for %d channels", a.InputChannelIndex, a.Channels))
	}

	return errors.Join(errs...)
}
