package asr

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Stats collects per-transcription latency and real-time-factor samples for
// the get_metrics control command. It keeps a bounded ring buffer per metric
// so percentiles reflect recent behaviour rather than the daemon's entire
// lifetime.
//
// Thread-safe for concurrent use.
type Stats struct {
	mu sync.Mutex

	latency latencyBuffer
	rtf     ratioBuffer

	transcriptions int64
	errors         int64
	circuitOpens   int64
}

// NewStats creates a Stats with the given ring buffer window size (maximum
// samples retained per metric). A windowSize of 0 or less defaults to 100.
func NewStats(windowSize int) *Stats {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &Stats{
		latency: newLatencyBuffer(windowSize),
		rtf:     newRatioBuffer(windowSize),
	}
}

// RecordTranscription records one successful transcription's processing
// latency and real-time factor, and increments the transcription counter.
func (s *Stats) RecordTranscription(latency time.Duration, rtf float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency.add(latency)
	s.rtf.add(rtf)
	s.transcriptions++
}

// RecordError increments the error counter, once for each engine call that
// returned an error. Failed calls are not retried.
func (s *Stats) RecordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

// RecordCircuitOpen increments the circuit-open counter, for transcription
// attempts rejected outright because the breaker was open.
func (s *Stats) RecordCircuitOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.circuitOpens++
}

// Percentiles holds p50 and p95 values for a latency-like metric.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
}

// Snapshot captures a point-in-time view of all ASR worker statistics.
type Snapshot struct {
	LatencyMs      Percentiles `json:"latency_ms"`
	RTF            Percentiles `json:"rtf"`
	Transcriptions int64       `json:"transcriptions"`
	Errors         int64       `json:"errors"`
	CircuitOpens   int64       `json:"circuit_opens"`
}

// Snapshot returns a point-in-time view of all ASR worker statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		LatencyMs:      s.latency.percentiles(),
		RTF:            s.rtf.percentiles(),
		Transcriptions: s.transcriptions,
		Errors:         s.errors,
		CircuitOpens:   s.circuitOpens,
	}
}

// latencyBuffer is a bounded ring buffer of millisecond latency samples.
type latencyBuffer struct {
	data []float64
	size int
	pos  int
	full bool
}

func newLatencyBuffer(size int) latencyBuffer {
	return latencyBuffer{data: make([]float64, size), size: size}
}

func (lb *latencyBuffer) add(d time.Duration) {
	lb.data[lb.pos] = float64(d) / float64(time.Millisecond)
	lb.pos++
	if lb.pos >= lb.size {
		lb.pos = 0
		lb.full = true
	}
}

func (lb *latencyBuffer) percentiles() Percentiles {
	return percentilesOf(lb.data, lb.pos, lb.full, lb.size)
}

// ratioBuffer is a bounded ring buffer of dimensionless ratio samples (used
// for real-time factor).
type ratioBuffer struct {
	data []float64
	size int
	pos  int
	full bool
}

func newRatioBuffer(size int) ratioBuffer {
	return ratioBuffer{data: make([]float64, size), size: size}
}

func (rb *ratioBuffer) add(v float64) {
	rb.data[rb.pos] = v
	rb.pos++
	if rb.pos >= rb.size {
		rb.pos = 0
		rb.full = true
	}
}

func (rb *ratioBuffer) percentiles() Percentiles {
	return percentilesOf(rb.data, rb.pos, rb.full, rb.size)
}

func percentilesOf(data []float64, pos int, full bool, size int) Percentiles {
	n := pos
	if full {
		n = size
	}
	if n == 0 {
		return Percentiles{}
	}

	sorted := make([]float64, n)
	if full {
		copy(sorted, data)
	} else {
		copy(sorted, data[:n])
	}
	sort.Float64s(sorted)

	return Percentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile returns the value at the given percentile (0.0-1.0) from a
// sorted slice using nearest-rank.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
