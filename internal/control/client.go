package control

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/rt-stt/rt-stt/internal/broadcast"
)

// client is the server-side handle for one accepted connection. It
// implements broadcast.Subscriber so the Hub can fan transcription events
// out to it, while Server.serveClient concurrently reads commands off the
// same net.Conn. Writes from both paths are serialised through mu so event
// and response frames never interleave on the wire.
type client struct {
	id   string
	conn net.Conn
	mu   sync.Mutex
}

// ID implements broadcast.Subscriber.
func (c *client) ID() string { return c.id }

// Send implements broadcast.Subscriber by framing event as a control
// Message of type event.
func (c *client) Send(event broadcast.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("control: marshal event: %w", err)
	}
	return c.writeMessage(Message{Type: TypeEvent, Data: data})
}

func (c *client) writeMessage(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteMessage(c.conn, msg)
}

// newResponse builds a response Message for a dispatched command. A
// non-nil dispatchErr is reported in the Error field rather than surfaced
// as a wire-level failure, so the requesting client always gets a typed
// reply instead of a dropped connection.
func newResponse(requestID string, result any, dispatchErr error) (Message, error) {
	msg := Message{Type: TypeResponse, ID: requestID}
	if dispatchErr != nil {
		msg.Error = dispatchErr.Error()
		return msg, nil
	}
	if result == nil {
		return msg, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return Message{}, fmt.Errorf("control: marshal result: %w", err)
	}
	msg.Data = data
	return msg, nil
}
