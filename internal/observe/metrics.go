// Package observe provides OpenTelemetry metrics, tracing and the HTTP
// middleware that ties them to structured logging.
//
// Metrics are exported to Prometheus through [InitProvider]. Tests should
// build their own [Metrics] with [NewMetrics] and a manual reader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/felixgeelhaar/speakflow"

// Metrics holds the metric instruments of the service. All fields are safe
// for concurrent use.
type Metrics struct {
	// GradingDuration tracks LLM grading latency.
	GradingDuration metric.Float64Histogram

	// GradingRequests counts grading calls by provider and status.
	GradingRequests metric.Int64Counter

	// Sessions counts persisted practice sessions by kind and overall level.
	Sessions metric.Int64Counter

	// CreditsRefresh counts credits lookups by source (cache, fetch, stale).
	CreditsRefresh metric.Int64Counter

	// QueueJobs counts processed analysis jobs by status.
	QueueJobs metric.Int64Counter

	// HTTPRequestDuration tracks request latency by method, route and status.
	HTTPRequestDuration metric.Float64Histogram
}

// Grading takes seconds, not milliseconds.
var gradingBuckets = []float64{0.5, 1, 2, 4, 8, 15, 30, 60, 120}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GradingDuration, err = m.Float64Histogram("speakflow.grading.duration",
		metric.WithDescription("Latency of LLM speech grading."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(gradingBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GradingRequests, err = m.Int64Counter("speakflow.grading.requests",
		metric.WithDescription("Grading requests by provider, mode and status."),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64Counter("speakflow.sessions",
		metric.WithDescription("Graded sessions by kind and overall level."),
	); err != nil {
		return nil, err
	}
	if met.CreditsRefresh, err = m.Int64Counter("speakflow.credits.lookups",
		metric.WithDescription("Voice credits lookups by source."),
	); err != nil {
		return nil, err
	}
	if met.QueueJobs, err = m.Int64Counter("speakflow.queue.jobs",
		metric.WithDescription("Queued analysis jobs by status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("speakflow.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on the global
// meter provider. Call it after InitProvider.
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

// RecordGrading records one grading call. A nil receiver is a no-op so
// services can run without telemetry.
func (m *Metrics) RecordGrading(ctx context.Context, provider, mode, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("mode", mode),
		attribute.String("status", status),
	)
	m.GradingDuration.Record(ctx, d.Seconds(), attrs)
	m.GradingRequests.Add(ctx, 1, attrs)
}

// RecordSession counts a persisted session.
func (m *Metrics) RecordSession(ctx context.Context, kind, level string) {
	if m == nil {
		return
	}
	m.Sessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("level", level),
	))
}

// RecordCredits counts a credits lookup.
func (m *Metrics) RecordCredits(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.CreditsRefresh.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordJob counts a processed queue job.
func (m *Metrics) RecordJob(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.QueueJobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
