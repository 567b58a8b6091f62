// Package replay implements audio.Device by reading pre-recorded audio from
// disk and delivering it in real time, as if it were live capture. It
// supports two container formats: WAV (PCM16) and a minimal length-prefixed
// Opus frame stream, decoded with layeh.com/gopus. It backs the daemon's
// -replay flag, for running the pipeline where a live microphone is
// unavailable.
package replay

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"layeh.com/gopus"

	"github.com/rt-stt/rt-stt/internal/config"
	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// Device replays a recorded file through audio.Device, pacing delivery at
// the configured sample rate so downstream VAD timing behaves as it would
// against a live source. The sample rate in a WAV header is not read; a file
// recorded at another rate is paced and labelled as the configured rate.
type Device struct {
	path         string
	sampleRate   int
	channels     int
	frameSamples int

	frames chan sttypes.Frame

	mu     sync.Mutex
	cancel func()
	closed bool
}

// New returns a Device that will replay path when Open is called. The file
// format is chosen by extension: ".wav" for PCM16 WAV, ".opus" for the
// length-prefixed Opus frame stream produced by the project's own encoder
// tooling.
func New(path string, cfg config.AudioConfig) (*Device, error) {
	if path == "" {
		return nil, errors.New("replay: path must not be empty")
	}
	bufferMs := cfg.BufferSizeMs
	if bufferMs <= 0 {
		bufferMs = 30
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Device{
		path:         path,
		sampleRate:   sampleRate,
		channels:     max(cfg.Channels, 1),
		frameSamples: sampleRate * bufferMs / 1000,
		frames:       make(chan sttypes.Frame, 4),
	}, nil
}

// Open begins streaming the file on an internal goroutine, decoding and
// pacing frames in real time.
func (d *Device) Open(ctx context.Context) error {
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("replay: open %q: %w", d.path, err)
	}

	decode, closeSrc, err := d.decoderFor(f)
	if err != nil {
		f.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	go d.run(ctx, decode, closeSrc)
	return nil
}

// decodeFunc reads and returns the next frame's mono float32 samples, or
// io.EOF when the file is exhausted.
type decodeFunc func() ([]float32, error)

func (d *Device) decoderFor(f *os.File) (decodeFunc, func() error, error) {
	switch strings.ToLower(filepath.Ext(d.path)) {
	case ".opus":
		return d.opusDecoder(f)
	default:
		return d.wavDecoder(f)
	}
}

func (d *Device) run(ctx context.Context, decode decodeFunc, closeSrc func() error) {
	defer close(d.frames)
	defer closeSrc()

	frameDur := time.Duration(d.frameSamples) * time.Second / time.Duration(d.sampleRate)
	ticker := time.NewTicker(frameDur)
	defer ticker.Stop()

	var elapsed time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			samples, err := decode()
			if err != nil {
				return
			}
			frame := sttypes.Frame{Samples: samples, SampleRate: d.sampleRate, Timestamp: elapsed}
			elapsed += frameDur

			select {
			case d.frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}

// wavDecoder parses a 16-bit PCM WAV file and returns a decodeFunc that
// yields frameSamples mono samples at a time, down-mixing channels by
// averaging.
func (d *Device) wavDecoder(f *os.File) (decodeFunc, func() error, error) {
	r := bufio.NewReader(f)

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, nil, fmt.Errorf("replay: read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("replay: %q is not a RIFF/WAVE file", d.path)
	}

	var channels uint16 = 1
	var dataFound bool
	for !dataFound {
		var chunkID [4]byte
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			return nil, nil, fmt.Errorf("replay: read chunk id: %w", err)
		}
		var chunkSize uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, nil, fmt.Errorf("replay: read chunk size: %w", err)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			fmtBody := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, fmtBody); err != nil {
				return nil, nil, fmt.Errorf("replay: read fmt chunk: %w", err)
			}
			if len(fmtBody) >= 4 {
				channels = binary.LittleEndian.Uint16(fmtBody[2:4])
			}
		case "data":
			dataFound = true
		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, nil, fmt.Errorf("replay: skip chunk %q: %w", chunkID, err)
			}
		}
	}
	if channels == 0 {
		channels = 1
	}

	bytesPerFrame := int(channels) * 2
	decode := func() ([]float32, error) {
		raw := make([]byte, d.frameSamples*bytesPerFrame)
		n, err := io.ReadFull(r, raw)
		if n == 0 {
			if err == nil {
				err = io.EOF
			}
			return nil, err
		}
		raw = raw[:n-(n%bytesPerFrame)]

		frames := len(raw) / bytesPerFrame
		out := make([]float32, frames)
		for i := 0; i < frames; i++ {
			var sum float32
			for ch := 0; ch < int(channels); ch++ {
				off := i*bytesPerFrame + ch*2
				v := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
				sum += float32(v) / 32768.0
			}
			out[i] = sum / float32(channels)
		}
		return out, nil
	}

	return decode, f.Close, nil
}

// opusDecoder reads a stream of 4-byte big-endian length-prefixed Opus
// packets and decodes each to mono float32 PCM via layeh.com/gopus.
func (d *Device) opusDecoder(f *os.File) (decodeFunc, func() error, error) {
	dec, err := gopus.NewDecoder(d.sampleRate, d.channels)
	if err != nil {
		return nil, nil, fmt.Errorf("replay: create opus decoder: %w", err)
	}
	r := bufio.NewReader(f)

	decode := func() ([]float32, error) {
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		packet := make([]byte, length)
		if _, err := io.ReadFull(r, packet); err != nil {
			return nil, fmt.Errorf("replay: read opus packet: %w", err)
		}

		pcm, err := dec.Decode(packet, d.frameSamples, false)
		if err != nil {
			return nil, fmt.Errorf("replay: decode opus packet: %w", err)
		}

		mono := make([]float32, len(pcm)/d.channels)
		for i := range mono {
			var sum float32
			for ch := 0; ch < d.channels; ch++ {
				sum += float32(pcm[i*d.channels+ch]) / 32768.0
			}
			mono[i] = sum / float32(d.channels)
		}
		return mono, nil
	}

	return decode, f.Close, nil
}

// Frames returns the frame delivery channel.
func (d *Device) Frames() <-chan sttypes.Frame { return d.frames }

// Close stops replay. Safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.cancel != nil {
		d.cancel()
	}
	return nil
}
