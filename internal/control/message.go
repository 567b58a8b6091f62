// Package control implements the daemon's Unix domain socket control
// surface: a single connection per client carries both inbound commands and
// outbound broadcast events, framed as 4-byte big-endian length-prefixed
// JSON messages.
package control

import (
	"encoding/json"

	"github.com/rt-stt/rt-stt/internal/config"
)

// Command names recognised in a request Message's Type field.
const (
	CommandPause             = "pause"
	CommandResume            = "resume"
	CommandGetStatus         = "get_status"
	CommandGetConfig         = "get_config"
	CommandSetConfig         = "set_config"
	CommandSetLanguage       = "set_language"
	CommandSetModel          = "set_model"
	CommandSetVADSensitivity = "set_vad_sensitivity"
	CommandGetMetrics        = "get_metrics"

	// CommandSubscribe and CommandUnsubscribe toggle whether the issuing
	// connection receives transcription events. They are handled by Server
	// directly rather than routed to a Dispatcher, since subscription state
	// belongs to the connection, not the pipeline. New connections are
	// subscribed by default.
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
)

// TypeResponse marks a Message as a reply to a request of the same ID.
// TypeEvent marks a Message as an unsolicited broadcast event.
const (
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Message is the single wire shape for every frame exchanged over the
// control socket, in either direction.
type Message struct {
	// Type is either a command name (request), [TypeResponse], or
	// [TypeEvent].
	Type string `json:"type"`

	// ID correlates a response to the request that produced it. Requests
	// should set a client-chosen ID; event messages have no ID.
	ID string `json:"id,omitempty"`

	// Data carries the command/response/event-specific payload.
	Data json.RawMessage `json:"data,omitempty"`

	// Error is set on a response Message when the command failed. Empty on
	// success.
	Error string `json:"error,omitempty"`
}

// SetLanguageRequest is the Data payload for a set_language command.
type SetLanguageRequest struct {
	Language string `json:"language"`
}

// SetModelRequest is the Data payload for a set_model command.
type SetModelRequest struct {
	ModelPath string `json:"model_path"`
}

// SetVADSensitivityRequest is the Data payload for a set_vad_sensitivity
// command. Zero-value fields are left unchanged.
type SetVADSensitivityRequest struct {
	SpeechStartThreshold float64 `json:"speech_start_threshold,omitempty"`
	SpeechEndThreshold   float64 `json:"speech_end_threshold,omitempty"`
}

// SetConfigRequest is the Data payload for a set_config command. It carries
// a full replacement for the hot-reloadable subset of the Configuration
// snapshot; the caller is expected to have started from a prior
// get_config response rather than constructing one from scratch.
type SetConfigRequest struct {
	Model config.ModelConfig `json:"model"`
	VAD   config.VADConfig   `json:"vad"`
	Audio config.AudioConfig `json:"audio"`
}

// SubscribeResponse is the Data payload for a subscribe/unsubscribe
// response.
type SubscribeResponse struct {
	Subscribed bool `json:"subscribed"`
}

// StatusResponse is the Data payload for a get_status response.
type StatusResponse struct {
	Paused      bool   `json:"paused"`
	Language    string `json:"language"`
	ModelPath   string `json:"model_path"`
	Subscribers int    `json:"subscribers"`
}
