// Package observe provides application-wide observability primitives for
// the rt-stt daemon: OpenTelemetry metrics, distributed tracing, and
// structured logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// installs a Prometheus exporter bridge, which registers with the default
// Prometheus registry; this package serves no HTTP /metrics endpoint for
// it. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all rt-stt metrics.
const meterName = "github.com/rt-stt/rt-stt"

// Metrics holds all OpenTelemetry metric instruments for the daemon. All
// fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TranscriptionDuration tracks ASR Worker transcription latency per
	// utterance.
	TranscriptionDuration metric.Float64Histogram

	// UtteranceDuration tracks the audio duration of segmented utterances.
	UtteranceDuration metric.Float64Histogram

	// RealTimeFactor tracks processing time divided by audio duration per
	// transcription; values below 1.0 mean the engine kept pace with live
	// audio.
	RealTimeFactor metric.Float64Histogram

	// --- Counters ---

	// TranscriptionErrors counts failed transcription attempts. Use with
	// attribute.String("reason", ...).
	TranscriptionErrors metric.Int64Counter

	// CircuitOpens counts ASR circuit breaker trips.
	CircuitOpens metric.Int64Counter

	// QueueDropped counts utterances dropped by the bounded utterance queue
	// on overflow.
	QueueDropped metric.Int64Counter

	// ControlCommands counts control-socket commands processed. Use with
	// attributes: attribute.String("command", ...), attribute.String("status", ...).
	ControlCommands metric.Int64Counter

	// --- Gauges ---

	// ActiveSubscribers tracks the number of control-socket clients
	// currently subscribed to the broadcast event stream.
	ActiveSubscribers metric.Int64UpDownCounter

	// QueueDepth tracks the current depth of the utterance queue.
	QueueDepth metric.Int64UpDownCounter

	// --- HTTP ---

	// HTTPRequestDuration is a histogram for HTTP request latency. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...).
	// The daemon's health handlers do not record to it.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// utterance-scale ASR latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 20,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("rt_stt.transcription.duration",
		metric.WithDescription("Latency of ASR Worker transcription calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("rt_stt.utterance.duration",
		metric.WithDescription("Audio duration of segmented utterances."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RealTimeFactor, err = m.Float64Histogram("rt_stt.transcription.rtf",
		metric.WithDescription("Processing time divided by audio duration per transcription."),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranscriptionErrors, err = m.Int64Counter("rt_stt.transcription.errors",
		metric.WithDescription("Total failed transcription attempts by reason."),
	); err != nil {
		return nil, err
	}
	if met.CircuitOpens, err = m.Int64Counter("rt_stt.circuit.opens",
		metric.WithDescription("Total ASR circuit breaker trips."),
	); err != nil {
		return nil, err
	}
	if met.QueueDropped, err = m.Int64Counter("rt_stt.queue.dropped",
		metric.WithDescription("Total utterances dropped by the utterance queue on overflow."),
	); err != nil {
		return nil, err
	}
	if met.ControlCommands, err = m.Int64Counter("rt_stt.control.commands",
		metric.WithDescription("Total control-socket commands processed by command and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSubscribers, err = m.Int64UpDownCounter("rt_stt.subscribers.active",
		metric.WithDescription("Number of control-socket clients subscribed to the broadcast stream."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("rt_stt.queue.depth",
		metric.WithDescription("Current depth of the utterance queue."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("rt_stt.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTranscriptionError is a convenience method that records a
// transcription error counter increment with the standard attribute set.
func (m *Metrics) RecordTranscriptionError(ctx context.Context, reason string) {
	m.TranscriptionErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordCircuitOpen is a convenience method that records an ASR circuit
// breaker trip.
func (m *Metrics) RecordCircuitOpen(ctx context.Context) {
	m.CircuitOpens.Add(ctx, 1)
}

// RecordQueueDropped is a convenience method that records an utterance
// dropped by the queue on overflow.
func (m *Metrics) RecordQueueDropped(ctx context.Context) {
	m.QueueDropped.Add(ctx, 1)
}

// RecordControlCommand is a convenience method that records a control-socket
// command counter increment with the standard attribute set.
func (m *Metrics) RecordControlCommand(ctx context.Context, command, status string) {
	m.ControlCommands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
		),
	)
}
