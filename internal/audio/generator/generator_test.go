package generator_test

import (
	"context"
	"testing"
	"time"

	"github.com/rt-stt/rt-stt/internal/audio/generator"
	"github.com/rt-stt/rt-stt/internal/config"
)

func TestDevice_SilenceProducesZeroSamples(t *testing.T) {
	t.Parallel()

	d, err := generator.New(config.AudioConfig{SampleRate: 16000, Channels: 1, BufferSizeMs: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Open(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Close()

	select {
	case frame := <-d.Frames():
		for _, s := range frame.Samples {
			if s != 0 {
				t.Fatalf("expected silence, got sample %v", s)
			}
		}
		if frame.SampleRate != 16000 {
			t.Errorf("SampleRate: got %d, want 16000", frame.SampleRate)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
	}
}

func TestDevice_ToneProducesNonZeroSamples(t *testing.T) {
	t.Parallel()

	d, err := generator.New(
		config.AudioConfig{SampleRate: 16000, Channels: 1, BufferSizeMs: 10},
		generator.WithWaveform(generator.Tone),
		generator.WithToneHz(440),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Open(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Close()

	select {
	case frame := <-d.Frames():
		nonZero := false
		for _, s := range frame.Samples {
			if s != 0 {
				nonZero = true
				break
			}
		}
		if !nonZero {
			t.Fatal("expected at least one non-zero sample for a tone waveform")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
	}
}

func TestDevice_CloseStopsFrameDelivery(t *testing.T) {
	t.Parallel()

	d, err := generator.New(config.AudioConfig{SampleRate: 16000, Channels: 1, BufferSizeMs: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Close should be idempotent.
	if err := d.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}

	select {
	case _, ok := <-d.Frames():
		if ok {
			// A frame generated before cancellation was observed; drain
			// until the channel closes.
			for range d.Frames() {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Frames channel did not close after Close")
	}
}
