// Package config provides the configuration schema, loader, and the
// Configuration snapshot mechanics for the rt-stt daemon.
package config

// LogLevel controls log verbosity for the daemon.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the daemon, loaded from a
// YAML file via [Load] or [LoadFromReader]. Field names mirror the wire
// schema from the control-surface get_config/set_config commands.
type Config struct {
	Server ServerConfig `yaml:"server"`
	STT    STTConfig    `yaml:"stt"`
	IPC    IPCConfig    `yaml:"ipc"`
}

// ServerConfig holds ambient daemon settings that are not part of the
// pipeline's own Configuration snapshot.
type ServerConfig struct {
	// LogLevel controls verbosity of the daemon's structured logging.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the address the /healthz and /readyz endpoints bind to
	// (e.g. "127.0.0.1:9090"). Empty disables the HTTP server. No /metrics
	// endpoint is served on it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// STTConfig groups the three parts of the pipeline's Configuration snapshot
// that are hot-reloadable via set_config: model, vad, and audio.
type STTConfig struct {
	Model ModelConfig `yaml:"model"`
	VAD   VADConfig   `yaml:"vad"`
	Audio AudioConfig `yaml:"audio"`
}

// ModelConfig configures the ASR engine.
type ModelConfig struct {
	// Path is the filesystem path to the model file (e.g. a GGML Whisper
	// model). Required for the native backend.
	Path string `yaml:"path" json:"path"`

	// Language is the BCP-47 language code requested from the engine, or
	// "auto" to let the engine detect it.
	Language string `yaml:"language" json:"language"`

	// UseGPU requests GPU acceleration from the engine when available.
	UseGPU bool `yaml:"use_gpu" json:"use_gpu"`

	// NThreads bounds the number of CPU threads the engine may use. 0 lets
	// the engine pick its own default.
	NThreads int `yaml:"n_threads" json:"n_threads"`

	// BeamSize configures beam-search decoding width. 0 uses greedy decoding.
	BeamSize int `yaml:"beam_size" json:"beam_size"`

	// Temperature is the sampling temperature passed to the engine.
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// VADConfig configures the energy-based voice activity detector.
type VADConfig struct {
	// EnergyThreshold is the raw RMS energy level above which a frame is
	// considered speech when UseAdaptiveThreshold is false.
	EnergyThreshold float64 `yaml:"energy_threshold" json:"energy_threshold"`

	// SpeechStartMs is the minimum consecutive above-threshold duration
	// required to transition SpeechMaybe -> Speech.
	SpeechStartMs int `yaml:"speech_start_ms" json:"speech_start_ms"`

	// SpeechEndMs is the minimum consecutive below-threshold duration
	// required to transition SpeechEnding -> Silence (committing the
	// utterance).
	SpeechEndMs int `yaml:"speech_end_ms" json:"speech_end_ms"`

	// MinSpeechMs is the minimum total utterance duration for it to be
	// emitted; shorter segments are discarded.
	MinSpeechMs int `yaml:"min_speech_ms" json:"min_speech_ms"`

	// SpeechStartThreshold and SpeechEndThreshold are the adaptive
	// thresholds expressed as multiples of the current noise floor, used
	// when UseAdaptiveThreshold is true.
	SpeechStartThreshold float64 `yaml:"speech_start_threshold" json:"speech_start_threshold"`
	SpeechEndThreshold   float64 `yaml:"speech_end_threshold" json:"speech_end_threshold"`

	// PreSpeechBufferMs is the duration of audio retained in the
	// pre-speech ring buffer and prepended to each emitted utterance.
	PreSpeechBufferMs int `yaml:"pre_speech_buffer_ms" json:"pre_speech_buffer_ms"`

	// NoiseFloorAdaptationRate is the smoothing factor (alpha) applied when
	// updating the noise floor estimate from the RMS energy history.
	NoiseFloorAdaptationRate float64 `yaml:"noise_floor_adaptation_rate" json:"noise_floor_adaptation_rate"`

	// UseAdaptiveThreshold selects adaptive (noise-floor-relative) vs raw
	// energy thresholds.
	UseAdaptiveThreshold bool `yaml:"use_adaptive_threshold" json:"use_adaptive_threshold"`
}

// AudioConfig configures the audio source device.
type AudioConfig struct {
	// DeviceName selects the capture device by name. Empty selects the
	// platform default.
	DeviceName string `yaml:"device_name" json:"device_name"`

	// SampleRate is the rate, in Hz, the audio source resamples/delivers
	// frames at (e.g. 16000).
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of channels the device is opened with.
	Channels int `yaml:"channels" json:"channels"`

	// BufferSizeMs is the requested driver buffer size in milliseconds.
	BufferSizeMs int `yaml:"buffer_size_ms" json:"buffer_size_ms"`

	// InputChannelIndex selects which channel to use when
	// ForceSingleChannel is true and Channels > 1.
	InputChannelIndex int `yaml:"input_channel_index" json:"input_channel_index"`

	// ForceSingleChannel selects InputChannelIndex instead of averaging all
	// channels down to mono.
	ForceSingleChannel bool `yaml:"force_single_channel" json:"force_single_channel"`
}

// IPCConfig configures the control surface transport.
type IPCConfig struct {
	// SocketPath is the filesystem path of the Unix domain control socket.
	SocketPath string `yaml:"socket_path"`
}

// Default returns a Config populated with the documented defaults for every
// field the configuration file may omit.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
		STT: STTConfig{
			Model: ModelConfig{
				Language: "auto",
			},
			VAD: VADConfig{
				EnergyThreshold:          500,
				SpeechStartMs:            90,
				SpeechEndMs:              500,
				MinSpeechMs:              250,
				SpeechStartThreshold:     2.0,
				SpeechEndThreshold:       1.5,
				PreSpeechBufferMs:        300,
				NoiseFloorAdaptationRate: 0.05,
				UseAdaptiveThreshold:     true,
			},
			Audio: AudioConfig{
				SampleRate:   16000,
				Channels:     1,
				BufferSizeMs: 30,
			},
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/rt-stt.sock",
		},
	}
}

// Snapshot is the immutable Configuration snapshot the Supervisor holds and
// atomically swaps on set_config, per the data model's
// {model, language, vad_params, audio_params, socket_path} aggregate. It is
// derived from a Config and never mutated in place — set_config always
// produces a new Snapshot value.
type Snapshot struct {
	Model      ModelConfig `json:"model"`
	Language   string      `json:"language"`
	VAD        VADConfig   `json:"vad"`
	Audio      AudioConfig `json:"audio"`
	SocketPath string      `json:"socket_path"`
}

// SnapshotFrom builds a Snapshot from a loaded Config.
func SnapshotFrom(cfg *Config) Snapshot {
	return Snapshot{
		Model:      cfg.STT.Model,
		Language:   cfg.STT.Model.Language,
		VAD:        cfg.STT.VAD,
		Audio:      cfg.STT.Audio,
		SocketPath: cfg.IPC.SocketPath,
	}
}
