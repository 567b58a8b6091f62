package broadcast

import "github.com/rt-stt/rt-stt/pkg/sttypes"

// EventType discriminates the kind of payload an Event carries over the
// control socket's subscriber stream.
type EventType string

const (
	// EventTranscription carries a completed sttypes.TranscriptionResult.
	EventTranscription EventType = "transcription"
	// EventStatus carries a StatusPayload reporting pipeline state changes
	// (paused/resumed, model swapped).
	EventStatus EventType = "status"
	// EventError carries an ErrorPayload describing a non-fatal pipeline
	// error a subscriber should be aware of (e.g. an ASR circuit trip).
	EventError EventType = "error"
	// EventAck carries an AckPayload acknowledging a control command that
	// was addressed to all subscribers rather than just the issuing client.
	EventAck EventType = "ack"
)

// Event is a single message delivered to every subscriber.
type Event struct {
	Type          EventType                  `json:"type"`
	Transcription *sttypes.TranscriptionResult `json:"transcription,omitempty"`
	Status        *StatusPayload             `json:"status,omitempty"`
	Error         *ErrorPayload              `json:"error,omitempty"`
	Ack           *AckPayload                `json:"ack,omitempty"`
}

// StatusPayload reports a pipeline state transition.
type StatusPayload struct {
	Paused bool   `json:"paused"`
	Reason string `json:"reason,omitempty"`
}

// ErrorPayload reports a non-fatal pipeline error.
type ErrorPayload struct {
	Message string `json:"message"`
}

// AckPayload acknowledges a processed control command.
type AckPayload struct {
	CommandID string `json:"command_id"`
}

// TranscriptionEvent wraps a transcription result as an Event.
func TranscriptionEvent(r sttypes.TranscriptionResult) Event {
	return Event{Type: EventTranscription, Transcription: &r}
}

// StatusEvent wraps a status change as an Event.
func StatusEvent(paused bool, reason string) Event {
	return Event{Type: EventStatus, Status: &StatusPayload{Paused: paused, Reason: reason}}
}

// ErrorEvent wraps an error message as an Event.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Error: &ErrorPayload{Message: message}}
}

// AckEvent wraps a command acknowledgement as an Event.
func AckEvent(commandID string) Event {
	return Event{Type: EventAck, Ack: &AckPayload{CommandID: commandID}}
}
