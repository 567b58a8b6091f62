// Package audio defines the capture device abstraction the Audio Source
// component runs against. Concrete backends live in subpackages (generator,
// replay); a real microphone backend would be a third adapter behind the
// same interface but needs a platform-specific cgo binding this module does
// not carry.
//
// The interface is intentionally narrow — Open, Frames, Close — so the
// pipeline stays decoupled from capture details, the same discipline the
// wider example corpus applies to its own platform/connection boundaries.
package audio

import (
	"context"

	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// Device is a single local audio capture source. A Device is opened once,
// streams frames until the supplied context is cancelled or the underlying
// source is exhausted (end of a replay file), and is closed exactly once.
//
// Implementations must be safe to Close concurrently with an in-progress
// Open or frame delivery; Close must make Frames' channel close promptly.
type Device interface {
	// Open starts capture. It must return once the device is ready to
	// deliver frames on the channel returned by Frames; the realtime
	// capture/decode loop itself should run on an internal goroutine so
	// Open does not block for the device's lifetime.
	Open(ctx context.Context) error

	// Frames returns the channel on which captured frames are delivered.
	// The channel is closed when the device stops producing frames, whether
	// due to Close, context cancellation, or (for file-backed devices)
	// reaching end of input.
	Frames() <-chan sttypes.Frame

	// Close stops capture and releases any resources. Safe to call more
	// than once; calls after the first are no-ops that return nil.
	Close() error
}
