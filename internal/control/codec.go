package control

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single framed message, guarding the socket against
// a misbehaving peer sending an unbounded length prefix.
const MaxMessageSize = 1 << 20 // 1 MiB

// ErrMessageTooLarge is returned by ReadMessage when a peer's declared
// frame length exceeds MaxMessageSize.
var ErrMessageTooLarge = errors.New("control: message exceeds MaxMessageSize")

// WriteMessage encodes msg as JSON and writes it to w as a single frame: a
// 4-byte big-endian length prefix followed by that many bytes of JSON body.
func WriteMessage(w io.Writer, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("control: marshal message: %w", err)
	}
	if len(body) > MaxMessageSize {
		return ErrMessageTooLarge
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("control: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("control: write body: %w", err)
	}
	return nil
}

// ReadMessage reads and decodes a single length-prefixed frame from r. It
// returns io.EOF unchanged when r is exhausted between frames,
// so callers can use it as a read-loop termination signal.
func ReadMessage(r io.Reader) (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, fmt.Errorf("control: truncated length prefix: %w", io.ErrUnexpectedEOF)
		}
		return Message{}, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxMessageSize {
		return Message{}, ErrMessageTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("control: read body: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("control: unmarshal message: %w", err)
	}
	return msg, nil
}
