package control_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/rt-stt/rt-stt/internal/control"
)

func TestWriteReadMessage_RoundTrips(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	want := control.Message{Type: control.CommandSetLanguage, ID: "42", Data: []byte(`{"language":"en"}`)}

	if err := control.WriteMessage(&buf, want); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	got, err := control.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got.Type != want.Type || got.ID != want.ID || string(got.Data) != string(want.Data) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadMessage_RejectsOversizedLengthPrefix(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], control.MaxMessageSize+1)
	buf.Write(header[:])

	_, err := control.ReadMessage(&buf)
	if !errors.Is(err, control.ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestReadMessage_TruncatedPrefixReturnsError(t *testing.T) {
	t.Parallel()
	buf := bytes.NewBuffer([]byte{0, 0})

	_, err := control.ReadMessage(buf)
	if err == nil {
		t.Fatal("expected an error for a truncated length prefix")
	}
}

func TestReadMessage_EOFBetweenFramesPropagates(t *testing.T) {
	t.Parallel()
	_, err := control.ReadMessage(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
