package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/cozy/cozy-build"
)

// Metrics holds the build metric instruments
type Metrics struct {
	BuildsTotal       metric.Int64Counter
	BuildErrorsTotal  metric.Int64Counter
	BuildDuration     metric.Float64Histogram
	OutputBytes       metric.Int64Counter
	OutputFilesTotal  metric.Int64Counter
	CacheHitsTotal    metric.Int64Counter
	CacheMissesTotal  metric.Int64Counter
	CSSRulesDiscarded metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for build spans.
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"cozybuild.builds.total",
		metric.WithDescription("Total number of builds started"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"cozybuild.builds.errors.total",
		metric.WithDescription("Total number of builds aborted by an error"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"cozybuild.builds.duration",
		metric.WithDescription("Duration of builds including post-processing and writes"),
		metric.WithUnit("ms"),
	)

	m.OutputBytes, _ = meter.Int64Counter(
		"cozybuild.output.bytes",
		metric.WithDescription("Total bytes written to the output directory"),
		metric.WithUnit("By"),
	)

	m.OutputFilesTotal, _ = meter.Int64Counter(
		"cozybuild.output.files.total",
		metric.WithDescription("Total number of files written to the output directory"),
		metric.WithUnit("{file}"),
	)

	// Script transform cache
	m.CacheHitsTotal, _ = meter.Int64Counter(
		"cozybuild.transform_cache.hits.total",
		metric.WithDescription("Script transforms served from the cache"),
		metric.WithUnit("{file}"),
	)

	m.CacheMissesTotal, _ = meter.Int64Counter(
		"cozybuild.transform_cache.misses.total",
		metric.WithDescription("Script transforms computed and stored in the cache"),
		metric.WithUnit("{file}"),
	)

	m.CSSRulesDiscarded, _ = meter.Int64Counter(
		"cozybuild.css.rules_discarded.total",
		metric.WithDescription("Duplicate or empty stylesheet rules removed by post-processing"),
		metric.WithUnit("{rule}"),
	)

	return m
}
