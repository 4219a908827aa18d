// Package observe provides application-wide observability primitives for
// DJZ-Speak: OpenTelemetry metrics, tracing, and trace-aware structured
// logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from a /metrics endpoint when the process runs long enough to care.
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all DJZ-Speak metrics.
const meterName = "github.com/djzlabs/djzspeak"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// EngineDuration tracks raw engine synthesis latency.
	EngineDuration metric.Float64Histogram

	// EffectsDuration tracks effect-chain processing latency.
	EffectsDuration metric.Float64Histogram

	// SynthesisDuration tracks end-to-end synthesis latency (engine plus
	// effects plus bookkeeping).
	SynthesisDuration metric.Float64Histogram

	// RealTimeFactor tracks synthesis wall time divided by produced audio
	// duration. Values below 1.0 mean faster than real time.
	RealTimeFactor metric.Float64Histogram

	// --- Counters ---

	// SynthesisRequests counts synthesis calls. Use with attributes:
	//   attribute.String("voice", ...), attribute.String("status", ...)
	SynthesisRequests metric.Int64Counter

	// EngineErrors counts backend failures. Use with attribute:
	//   attribute.String("engine", ...)
	EngineErrors metric.Int64Counter

	// CacheHits and CacheMisses count synthesis cache lookups.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// --- Gauges ---

	// ActiveBatchJobs tracks synthesis requests currently in flight in the
	// batch worker pool.
	ActiveBatchJobs metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// subprocess synthesis latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// rtfBuckets defines histogram bucket boundaries for the real-time factor.
var rtfBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.2, 0.35, 0.5, 0.75, 1, 2,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.EngineDuration, err = m.Float64Histogram("djzspeak.engine.duration",
		metric.WithDescription("Latency of raw engine synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EffectsDuration, err = m.Float64Histogram("djzspeak.effects.duration",
		metric.WithDescription("Latency of effect-chain processing."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("djzspeak.synthesis.duration",
		metric.WithDescription("End-to-end synthesis latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RealTimeFactor, err = m.Float64Histogram("djzspeak.synthesis.rtf",
		metric.WithDescription("Synthesis wall time divided by produced audio duration."),
		metric.WithExplicitBucketBoundaries(rtfBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SynthesisRequests, err = m.Int64Counter("djzspeak.synthesis.requests",
		metric.WithDescription("Total synthesis requests by voice and status."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("djzspeak.engine.errors",
		metric.WithDescription("Total synthesis backend failures by engine."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("djzspeak.cache.hits",
		metric.WithDescription("Synthesis cache hits."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("djzspeak.cache.misses",
		metric.WithDescription("Synthesis cache misses."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveBatchJobs, err = m.Int64UpDownCounter("djzspeak.batch.active_jobs",
		metric.WithDescription("Synthesis requests currently in flight in the batch pool."),
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

// RecordSynthesis is a convenience method that records a synthesis request
// counter increment with the standard attribute set.
func (m *Metrics) RecordSynthesis(ctx context.Context, voice, status string) {
	m.SynthesisRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("voice", voice),
			attribute.String("status", status),
		),
	)
}

// RecordEngineError is a convenience method that records a backend failure
// counter increment.
func (m *Metrics) RecordEngineError(ctx context.Context, engine string) {
	m.EngineErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("engine", engine)),
	)
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if hit {
		m.CacheHits.Add(ctx, 1)
		return
	}
	m.CacheMisses.Add(ctx, 1)
}
