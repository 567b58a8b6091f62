package vad

import "github.com/rt-stt/rt-stt/pkg/sttypes"

// preBuffer retains the most recent frames seen while in the Silence state
// so that, once speech is confirmed, the utterance can include the audio
// leading up to the confirmation instead of starting mid-word.
type preBuffer struct {
	frames   []sttypes.Frame
	capacity int
}

func newPreBuffer(capacityMs, frameDurMs int) *preBuffer {
	cap := 1
	if frameDurMs > 0 {
		cap = capacityMs / frameDurMs
	}
	if cap < 1 {
		cap = 1
	}
	return &preBuffer{frames: make([]sttypes.Frame, 0, cap), capacity: cap}
}

// push appends frame, evicting the oldest if the buffer is at capacity.
func (b *preBuffer) push(frame sttypes.Frame) {
	if len(b.frames) >= b.capacity {
		copy(b.frames, b.frames[1:])
		b.frames = b.frames[:len(b.frames)-1]
	}
	b.frames = append(b.frames, frame)
}

// drain returns all buffered frames in order and empties the buffer.
func (b *preBuffer) drain() []sttypes.Frame {
	out := b.frames
	b.frames = make([]sttypes.Frame, 0, b.capacity)
	return out
}

func (b *preBuffer) reset() {
	b.frames = b.frames[:0]
}
