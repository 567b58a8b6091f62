// Package broadcast fans transcription results and pipeline status events
// out to every connected control-socket client.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// Subscriber receives broadcast events. internal/control's per-connection
// client implements this, serialising writes onto its own socket.
//
// Send must not block the Hub indefinitely; a slow or dead subscriber
// should return an error quickly so the Hub can drop it.
type Subscriber interface {
	ID() string
	Send(Event) error
}

// subscriberEntry pairs a connected Subscriber with its per-connection
// transcription-subscription state.
type subscriberEntry struct {
	sub        Subscriber
	subscribed bool
}

// Hub maintains the set of connected subscribers and fans events out to all
// of them. Broadcast takes a snapshot of the subscriber set under lock,
// then writes to each outside the lock, so a slow subscriber's Send call
// never blocks OnConnect/OnDisconnect or other in-flight broadcasts.
//
// Safe for concurrent use.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscriberEntry
}

// NewHub returns an empty, ready-to-use Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscriberEntry)}
}

// OnConnect registers sub to receive subsequent broadcasts. New connections
// are subscribed to transcription events by default.
func (h *Hub) OnConnect(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub.ID()] = &subscriberEntry{sub: sub, subscribed: true}
}

// OnDisconnect removes a subscriber. Safe to call even if the subscriber
// was never registered or was already removed.
func (h *Hub) OnDisconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Subscribe marks the connection id as subscribed to transcription events.
// Idempotent: subscribing twice leaves it subscribed. A no-op if id is not
// currently connected.
func (h *Hub) Subscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.subs[id]; ok {
		e.subscribed = true
	}
}

// Unsubscribe marks the connection id as unsubscribed from transcription
// events. Idempotent: unsubscribing twice leaves it unsubscribed. Status,
// error, and ack events are unaffected — those still reach every connected
// client regardless of subscription state. A no-op if id is not currently
// connected.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.subs[id]; ok {
		e.subscribed = false
	}
}

// Count returns the number of currently connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// broadcast snapshots the subscriber set and writes event to each,
// unregistering any subscriber whose Send fails. When transcriptionOnly is
// true, connections that called Unsubscribe are skipped.
func (h *Hub) broadcast(event Event, transcriptionOnly bool) {
	h.mu.RLock()
	snapshot := make([]Subscriber, 0, len(h.subs))
	for _, e := range h.subs {
		if transcriptionOnly && !e.subscribed {
			continue
		}
		snapshot = append(snapshot, e.sub)
	}
	h.mu.RUnlock()

	var dead []string
	for _, sub := range snapshot {
		if err := sub.Send(event); err != nil {
			slog.Warn("broadcast: dropping unresponsive subscriber", "id", sub.ID(), "error", err)
			dead = append(dead, sub.ID())
		}
	}

	if len(dead) == 0 {
		return
	}
	h.mu.Lock()
	for _, id := range dead {
		delete(h.subs, id)
	}
	h.mu.Unlock()
}

// Publish implements asr.Publisher: it wraps a transcription result as an
// Event and fans it out to every subscribed connection.
func (h *Hub) Publish(result sttypes.TranscriptionResult) {
	h.broadcast(TranscriptionEvent(result), true)
}

// PublishStatus fans out a pipeline status change to every connection.
func (h *Hub) PublishStatus(paused bool, reason string) {
	h.broadcast(StatusEvent(paused, reason), false)
}

// PublishError fans out a non-fatal pipeline error to every connection.
func (h *Hub) PublishError(message string) {
	h.broadcast(ErrorEvent(message), false)
}

// PublishAck fans out an acknowledgement for a broadcast-scope command to
// every connection.
func (h *Hub) PublishAck(commandID string) {
	h.broadcast(AckEvent(commandID), false)
}
