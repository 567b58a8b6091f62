package broadcast_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/rt-stt/rt-stt/internal/broadcast"
	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

type fakeSubscriber struct {
	id      string
	mu      sync.Mutex
	sendErr error
	events  []broadcast.Event
}

func (s *fakeSubscriber) ID() string { return s.id }

func (s *fakeSubscriber) Send(e broadcast.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.events = append(s.events, e)
	return nil
}

func (s *fakeSubscriber) received() []broadcast.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

func TestHub_PublishDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()
	h := broadcast.NewHub()

	a := &fakeSubscriber{id: "a"}
	b := &fakeSubscriber{id: "b"}
	h.OnConnect(a)
	h.OnConnect(b)

	h.Publish(sttypes.TranscriptionResult{Text: "hello"})

	for _, sub := range []*fakeSubscriber{a, b} {
		events := sub.received()
		if len(events) != 1 {
			t.Fatalf("subscriber %s: expected 1 event, got %d", sub.id, len(events))
		}
		if events[0].Type != broadcast.EventTranscription {
			t.Errorf("subscriber %s: expected transcription event, got %v", sub.id, events[0].Type)
		}
		if events[0].Transcription.Text != "hello" {
			t.Errorf("subscriber %s: got text %q", sub.id, events[0].Transcription.Text)
		}
	}
}

func TestHub_OnDisconnectStopsDelivery(t *testing.T) {
	t.Parallel()
	h := broadcast.NewHub()
	a := &fakeSubscriber{id: "a"}
	h.OnConnect(a)
	h.OnDisconnect("a")

	h.Publish(sttypes.TranscriptionResult{Text: "hello"})

	if len(a.received()) != 0 {
		t.Error("expected no events after disconnect")
	}
	if h.Count() != 0 {
		t.Errorf("Count: got %d, want 0", h.Count())
	}
}

func TestHub_FailedSendDropsSubscriber(t *testing.T) {
	t.Parallel()
	h := broadcast.NewHub()
	a := &fakeSubscriber{id: "a", sendErr: errors.New("broken pipe")}
	h.OnConnect(a)

	h.Publish(sttypes.TranscriptionResult{Text: "first"})
	if h.Count() != 0 {
		t.Errorf("expected the failing subscriber to be dropped, Count=%d", h.Count())
	}

	// A second publish must not panic or re-deliver to the dropped subscriber.
	h.Publish(sttypes.TranscriptionResult{Text: "second"})
}

func TestHub_UnsubscribeStopsTranscriptionsButNotOtherEvents(t *testing.T) {
	t.Parallel()
	h := broadcast.NewHub()
	subscribed := &fakeSubscriber{id: "subscribed"}
	unsubscribed := &fakeSubscriber{id: "unsubscribed"}
	h.OnConnect(subscribed)
	h.OnConnect(unsubscribed)

	h.Unsubscribe("unsubscribed")
	h.Publish(sttypes.TranscriptionResult{Text: "hello"})
	h.PublishStatus(true, "paused")

	if len(subscribed.received()) != 2 {
		t.Fatalf("subscribed client: expected 2 events, got %d", len(subscribed.received()))
	}

	unsubEvents := unsubscribed.received()
	if len(unsubEvents) != 1 {
		t.Fatalf("unsubscribed client: expected 1 event (status only), got %d", len(unsubEvents))
	}
	if unsubEvents[0].Type != broadcast.EventStatus {
		t.Errorf("unsubscribed client: expected a status event, got %v", unsubEvents[0].Type)
	}
}

func TestHub_SubscribeAndUnsubscribeAreIdempotent(t *testing.T) {
	t.Parallel()
	h := broadcast.NewHub()
	a := &fakeSubscriber{id: "a"}
	h.OnConnect(a)

	h.Subscribe("a")
	h.Subscribe("a")
	h.Publish(sttypes.TranscriptionResult{Text: "one"})
	if len(a.received()) != 1 {
		t.Fatalf("expected subscribing twice to leave the connection subscribed, got %d events", len(a.received()))
	}

	h.Unsubscribe("a")
	h.Unsubscribe("a")
	h.Publish(sttypes.TranscriptionResult{Text: "two"})
	if len(a.received()) != 1 {
		t.Fatalf("expected unsubscribing twice to leave the connection unsubscribed, got %d events", len(a.received()))
	}
}

func TestHub_SubscribeUnsubscribeOnUnknownIDIsNoop(t *testing.T) {
	t.Parallel()
	h := broadcast.NewHub()
	h.Subscribe("ghost")
	h.Unsubscribe("ghost")
	// Must not panic, and must not register a phantom subscriber.
	if h.Count() != 0 {
		t.Errorf("expected Count to remain 0, got %d", h.Count())
	}
}

func TestHub_PublishStatusAndErrorAndAck(t *testing.T) {
	t.Parallel()
	h := broadcast.NewHub()
	a := &fakeSubscriber{id: "a"}
	h.OnConnect(a)

	h.PublishStatus(true, "client requested pause")
	h.PublishError("asr circuit open")
	h.PublishAck("cmd-123")

	events := a.received()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != broadcast.EventStatus || !events[0].Status.Paused {
		t.Errorf("unexpected status event: %+v", events[0])
	}
	if events[1].Type != broadcast.EventError || events[1].Error.Message != "asr circuit open" {
		t.Errorf("unexpected error event: %+v", events[1])
	}
	if events[2].Type != broadcast.EventAck || events[2].Ack.CommandID != "cmd-123" {
		t.Errorf("unexpected ack event: %+v", events[2])
	}
}
