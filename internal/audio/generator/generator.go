// Package generator implements audio.Device with synthetic audio: silence
// or a fixed-frequency sine tone. It has no external dependencies, which
// makes it the backend for unit tests and for local smoke-testing the
// pipeline without a microphone or a sample file.
package generator

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rt-stt/rt-stt/internal/config"
	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// Waveform selects what Device produces.
type Waveform int

const (
	// Silence emits all-zero samples.
	Silence Waveform = iota
	// Tone emits a sine wave at ToneHz.
	Tone
)

// Device generates frames of a fixed waveform, paced in real time to match
// how a live capture device would deliver audio.
type Device struct {
	sampleRate   int
	channels     int
	frameSamples int
	waveform     Waveform
	toneHz       float64

	frames chan sttypes.Frame

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// Option configures a Device.
type Option func(*Device)

// WithWaveform sets the generated waveform. Defaults to Silence.
func WithWaveform(w Waveform) Option {
	return func(d *Device) { d.waveform = w }
}

// WithToneHz sets the sine tone frequency used when the waveform is Tone.
// Defaults to 440 Hz.
func WithToneHz(hz float64) Option {
	return func(d *Device) { d.toneHz = hz }
}

// New returns a Device configured from cfg. SampleRate and Channels default
// to 16000/1 if unset; BufferSizeMs defaults to 30ms.
func New(cfg config.AudioConfig, opts ...Option) (*Device, error) {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	bufferMs := cfg.BufferSizeMs
	if bufferMs <= 0 {
		bufferMs = 30
	}

	d := &Device{
		sampleRate:   sampleRate,
		channels:     channels,
		frameSamples: sampleRate * bufferMs / 1000,
		waveform:     Silence,
		toneHz:       440,
		frames:       make(chan sttypes.Frame, 4),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Open starts the generation loop on an internal goroutine.
func (d *Device) Open(ctx context.Context) error {
	d.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	go d.run(ctx)
	return nil
}

func (d *Device) run(ctx context.Context) {
	defer close(d.frames)

	frameDur := time.Duration(d.frameSamples) * time.Second / time.Duration(d.sampleRate)
	ticker := time.NewTicker(frameDur)
	defer ticker.Stop()

	var elapsed time.Duration
	var phase float64
	phaseStep := 2 * math.Pi * d.toneHz / float64(d.sampleRate)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			samples := make([]float32, d.frameSamples)
			if d.waveform == Tone {
				for i := range samples {
					samples[i] = float32(0.2 * math.Sin(phase))
					phase += phaseStep
				}
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

// Frames returns the frame delivery channel.
func (d *Device) Frames() <-chan sttypes.Frame { return d.frames }

// Close stops generation. Safe to call more than once.
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
