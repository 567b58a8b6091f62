// Package queue implements the bounded utterance handoff between the VAD
// Segmenter and the ASR Worker.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rt-stt/rt-stt/pkg/sttypes"
)

// DefaultCapacity is the queue capacity New uses when given a non-positive
// capacity.
const DefaultCapacity = 100

// ErrClosed is returned by Push once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// Queue is a bounded multi-producer single-consumer buffer of utterances.
// When full, Push drops the oldest queued utterance to make room for the
// new one rather than blocking the producer — a live pipeline must never
// let a slow ASR Worker back-pressure the Audio Source.
//
// Safe for concurrent Push calls from multiple goroutines; Pop is intended
// to be called from a single consumer goroutine (the ASR Worker).
type Queue struct {
	mu     sync.Mutex
	items  []sttypes.Utterance
	cap    int
	closed bool

	notEmpty chan struct{}

	dropped int64
}

// New returns a Queue with the given capacity. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		cap:      capacity,
		items:    make([]sttypes.Utterance, 0, capacity),
		notEmpty: make(chan struct{}, 1),
	}
}

// Push enqueues utt. If the queue is at capacity the oldest queued
// utterance is dropped and the overflow counter is incremented. Returns
// ErrClosed if the queue has been closed.
func (q *Queue) Push(utt sttypes.Utterance) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	if len(q.items) >= q.cap {
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, utt)

	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
	return nil
}

// Pop blocks until an utterance is available, ctx is cancelled, or the
// queue is closed. The second return value is false when the queue has
// been closed and drained, or when ctx is cancelled first.
func (q *Queue) Pop(ctx context.Context) (sttypes.Utterance, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			utt := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return utt, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return sttypes.Utterance{}, false
		}

		select {
		case <-q.notEmpty:
			continue
		case <-ctx.Done():
			return sttypes.Utterance{}, false
		}
	}
}

// Close marks the queue closed. Already-queued utterances remain
// retrievable via Pop until drained; after that Pop returns false. Safe to
// call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}

// Dropped returns the number of utterances discarded due to overflow.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Len returns the number of utterances currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
