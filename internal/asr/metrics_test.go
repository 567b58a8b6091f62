package asr_test

import (
	"testing"
	"time"

	"github.com/rt-stt/rt-stt/internal/asr"
)

func TestStats_SnapshotComputesPercentiles(t *testing.T) {
	t.Parallel()

	s := asr.NewStats(10)
	for i := 1; i <= 10; i++ {
		s.RecordTranscription(time.Duration(i)*time.Millisecond, float64(i)/10)
	}

	snap := s.Snapshot()
	if snap.Transcriptions != 10 {
		t.Errorf("Transcriptions: got %d, want 10", snap.Transcriptions)
	}
	if snap.LatencyMs.P50 != 5 {
		t.Errorf("LatencyMs.P50: got %v, want 5", snap.LatencyMs.P50)
	}
	if snap.LatencyMs.P95 != 10 {
		t.Errorf("LatencyMs.P95: got %v, want 10", snap.LatencyMs.P95)
	}
}

func TestStats_RingBufferDropsOldestBeyondWindow(t *testing.T) {
	t.Parallel()

	s := asr.NewStats(3)
	s.RecordTranscription(100*time.Millisecond, 1)
	s.RecordTranscription(200*time.Millisecond, 1)
	s.RecordTranscription(300*time.Millisecond, 1)
	s.RecordTranscription(900*time.Millisecond, 1) // evicts the 100ms sample

	snap := s.Snapshot()
	if snap.LatencyMs.P95 != 900 {
		t.Errorf("expected newest sample to dominate P95, got %v", snap.LatencyMs.P95)
	}
}

func TestStats_RecordErrorAndCircuitOpen(t *testing.T) {
	t.Parallel()

	s := asr.NewStats(10)
	s.RecordError()
	s.RecordError()
	s.RecordCircuitOpen()

	snap := s.Snapshot()
	if snap.Errors != 2 {
		t.Errorf("Errors: got %d, want 2", snap.Errors)
	}
	if snap.CircuitOpens != 1 {
		t.Errorf("CircuitOpens: got %d, want 1", snap.CircuitOpens)
	}
}
