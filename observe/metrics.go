// Package observe wires OpenTelemetry metrics and traces, the Prometheus
// scrape endpoint, HTTP middleware and the process logger.
//
// Tests should build their own [Metrics] with [NewMetrics] and a
// ManualReader-backed MeterProvider rather than use [DefaultMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for every chordscribe instrument.
const meterName = "github.com/jsphweid/chordscribe"

// Metrics holds the application's instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// AnalysisDuration tracks end-to-end analysis latency per stage. Use with
	//   attribute.String("stage", "decode"|"extract"|"classify"|"total")
	AnalysisDuration metric.Float64Histogram

	// FramesClassified counts chroma frames run through the classifier.
	FramesClassified metric.Int64Counter

	// SegmentsEmitted counts timeline segments produced.
	SegmentsEmitted metric.Int64Counter

	// AnalysisErrors counts failed analyses. Use with
	//   attribute.String("kind", "invalid_argument"|"upstream"|"internal")
	AnalysisErrors metric.Int64Counter

	// CatalogReloads counts catalog reload attempts by status.
	CatalogReloads metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time by method, route
	// and status.
	HTTPRequestDuration metric.Float64Histogram
}

// analysisBuckets are in seconds; whole songs take seconds, not milliseconds.
var analysisBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AnalysisDuration, err = m.Float64Histogram("chordscribe.analysis.duration",
		metric.WithDescription("Latency of chord analysis by stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesClassified, err = m.Int64Counter("chordscribe.frames.classified",
		metric.WithDescription("Total chroma frames classified."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsEmitted, err = m.Int64Counter("chordscribe.segments.emitted",
		metric.WithDescription("Total chord timeline segments emitted."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisErrors, err = m.Int64Counter("chordscribe.analysis.errors",
		metric.WithDescription("Total failed analyses by error kind."),
	); err != nil {
		return nil, err
	}
	if met.CatalogReloads, err = m.Int64Counter("chordscribe.catalog.reloads",
		metric.WithDescription("Total chord catalog reloads by status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("chordscribe.http.request.duration",
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

// DefaultMetrics returns a process-wide Metrics built on the global
// MeterProvider. Call it after InitProvider so the exporter sees it.
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

func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.AnalysisDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

func (m *Metrics) RecordAnalysis(ctx context.Context, frames, segments int) {
	m.FramesClassified.Add(ctx, int64(frames))
	m.SegmentsEmitted.Add(ctx, int64(segments))
}

func (m *Metrics) RecordError(ctx context.Context, kind string) {
	m.AnalysisErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

func (m *Metrics) RecordCatalogReload(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CatalogReloads.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
