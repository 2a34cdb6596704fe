// Package observe provides application-wide observability primitives for
// Readalong: OpenTelemetry metrics and distributed tracing.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all Readalong metrics.
const meterName = "github.com/MrWong99/readalong"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TTSDuration tracks text-to-speech synthesis latency per sentence.
	TTSDuration metric.Float64Histogram

	// CaptureDuration tracks capture finalization and normalization latency.
	CaptureDuration metric.Float64Histogram

	// ScoringDuration tracks pronunciation scoring latency.
	ScoringDuration metric.Float64Histogram

	// --- Counters ---

	// SentencesSpoken counts completed sentence syntheses.
	SentencesSpoken metric.Int64Counter

	// PracticeAttempts counts scored pronunciation attempts. Use with
	// attribute: attribute.String("verdict", ...)
	PracticeAttempts metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of open reading sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveCaptures tracks the number of open microphone captures.
	ActiveCaptures metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for speech-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TTSDuration, err = m.Float64Histogram("readalong.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis per sentence."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CaptureDuration, err = m.Float64Histogram("readalong.capture.duration",
		metric.WithDescription("Latency of capture finalization and normalization."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ScoringDuration, err = m.Float64Histogram("readalong.scoring.duration",
		metric.WithDescription("Latency of pronunciation scoring."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SentencesSpoken, err = m.Int64Counter("readalong.sentences.spoken",
		metric.WithDescription("Total sentences read aloud to completion."),
	); err != nil {
		return nil, err
	}
	if met.PracticeAttempts, err = m.Int64Counter("readalong.practice.attempts",
		metric.WithDescription("Total scored pronunciation attempts by verdict."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("readalong.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("readalong.active_sessions",
		metric.WithDescription("Number of open reading sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveCaptures, err = m.Int64UpDownCounter("readalong.active_captures",
		metric.WithDescription("Number of open microphone captures."),
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

// RecordSentenceSpoken increments the spoken-sentence counter.
func (m *Metrics) RecordSentenceSpoken(ctx context.Context) {
	m.SentencesSpoken.Add(ctx, 1)
}

// RecordPracticeAttempt records one scored attempt with its verdict tier.
func (m *Metrics) RecordPracticeAttempt(ctx context.Context, verdict string) {
	m.PracticeAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("verdict", verdict)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
