package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rt-stt/rt-stt/internal/broadcast"
)

// Dispatcher executes a decoded command and returns its JSON result payload.
// Implementations (the supervisor) own the command taxonomy; control only
// knows about framing and connection lifecycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Message) (result any, err error)
}

// Server accepts connections on a Unix domain socket. Each connection is
// registered with hub as a broadcast.Subscriber for as long as it stays
// open, and concurrently serviced as a command request/response stream
// dispatched to dispatcher.
type Server struct {
	socketPath string
	hub        *broadcast.Hub
	dispatcher Dispatcher

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	nextID   atomic.Uint64
}

// NewServer returns a Server that will listen on socketPath once Serve is
// called.
func NewServer(socketPath string, hub *broadcast.Hub, dispatcher Dispatcher) *Server {
	return &Server{socketPath: socketPath, hub: hub, dispatcher: dispatcher}
}

// Serve binds the control socket and accepts connections until ctx is
// cancelled or a non-recoverable accept error occurs. It unlinks any stale
// socket file left over from a prior unclean shutdown before binding, and
// removes the socket file again on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("control: removing stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("control: listen on %s: %w", s.socketPath, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	defer func() {
		ln.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("control: accept: %w", err)
		}

		c := &client{
			id:   "ctl-" + strconv.FormatUint(s.nextID.Add(1), 10),
			conn: conn,
		}
		s.hub.OnConnect(c)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveClient(ctx, c)
		}()
	}
}

// Close stops accepting new connections. In-flight connections are closed
// when their underlying net.Conn read unblocks with an error.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveClient(ctx context.Context, c *client) {
	defer func() {
		s.hub.OnDisconnect(c.id)
		c.conn.Close()
	}()

	for {
		msg, err := ReadMessage(c.conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Debug("control: client read ended", "client", c.id, "error", err)
			}
			return
		}

		result, dispatchErr := s.dispatch(ctx, c, msg)
		resp, err := newResponse(msg.ID, result, dispatchErr)
		if err != nil {
			slog.Error("control: encoding response", "client", c.id, "error", err)
			return
		}
		if err := c.writeMessage(resp); err != nil {
			slog.Debug("control: client write failed", "client", c.id, "error", err)
			return
		}
	}
}

// dispatch handles connection-lifecycle commands (subscribe/unsubscribe)
// directly against hub, since those affect only the issuing connection's own
// subscriber record rather than pipeline state; every other command is
// routed to the configured Dispatcher.
func (s *Server) dispatch(ctx context.Context, c *client, msg Message) (any, error) {
	switch msg.Type {
	case CommandSubscribe:
		s.hub.Subscribe(c.id)
		return SubscribeResponse{Subscribed: true}, nil
	case CommandUnsubscribe:
		s.hub.Unsubscribe(c.id)
		return SubscribeResponse{Subscribed: false}, nil
	default:
		return s.dispatcher.Dispatch(ctx, msg)
	}
}
