package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rt-stt/rt-stt/internal/broadcast"
)

// Client is a connection to a running daemon's control socket, used by
// cmd/rt-sttctl. A single connection carries both command/response pairs
// and the subscriber's broadcast event stream; Client demultiplexes the
// two internally so callers can issue commands and read events
// concurrently.
type Client struct {
	conn net.Conn

	nextID atomic.Uint64

	pendingMu sync.Mutex
	pending   map[string]chan Message

	events chan broadcast.Event

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// Dial connects to a daemon's control socket at socketPath and starts the
// background demultiplexing loop.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", socketPath, err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan Message),
		events:  make(chan broadcast.Event, 64),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)
	for {
		msg, err := ReadMessage(c.conn)
		if err != nil {
			c.failPending(err)
			return
		}

		switch msg.Type {
		case TypeEvent:
			var event broadcast.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				continue
			}
			select {
			case c.events <- event:
			default:
				// Slow consumer: drop rather than stall the demux loop.
			}
		case TypeResponse:
			c.pendingMu.Lock()
			ch, ok := c.pending[msg.ID]
			if ok {
				delete(c.pending, msg.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- msg
			}
		}
	}
}

func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- Message{Type: TypeResponse, ID: id, Error: err.Error()}
		delete(c.pending, id)
	}
}

// Call sends a command with the given type and JSON-encodable payload, and
// blocks until a matching response arrives, ctx is cancelled, or the
// connection fails.
func (c *Client) Call(ctx context.Context, cmdType string, payload any) (Message, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("control: marshal payload: %w", err)
		}
	}

	id := strconv.FormatUint(c.nextID.Add(1), 10)
	reply := make(chan Message, 1)
	c.pendingMu.Lock()
	c.pending[id] = reply
	c.pendingMu.Unlock()

	if err := WriteMessage(c.conn, Message{Type: cmdType, ID: id, Data: data}); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return Message{}, err
	}

	select {
	case msg := <-reply:
		if msg.Error != "" {
			return msg, errors.New(msg.Error)
		}
		return msg, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return Message{}, ctx.Err()
	case <-c.done:
		return Message{}, errors.New("control: connection closed")
	}
}

// Events returns the channel of broadcast events delivered on this
// connection. It is closed when the connection is closed or fails.
func (c *Client) Events() <-chan broadcast.Event {
	return c.events
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
