package metrics

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments. Fields are public so
// they can be recorded from other packages.
type AppMetrics struct {
	GenerationRequestsTotal   metric.Int64Counter
	GenerationDurationSeconds metric.Float64Histogram
	AICallsTotal              metric.Int64Counter
	AICallErrorsTotal         metric.Int64Counter
	FallbackDaysTotal         metric.Int64Counter
	DuplicatesResolvedTotal   metric.Int64Counter
}

// New creates the metric instruments from the globally configured
// MeterProvider. Call once at startup, after tracer.InitTracingAndMetrics.
func New() (*AppMetrics, error) {
	meter := otel.GetMeterProvider().Meter("go-trip-planner")
	m := &AppMetrics{}
	var err error

	m.GenerationRequestsTotal, err = meter.Int64Counter(
		"generation_requests_total",
		metric.WithDescription("Total number of itinerary generation requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: generation_requests_total: %w", err)
	}

	m.GenerationDurationSeconds, err = meter.Float64Histogram(
		"generation_duration_seconds",
		metric.WithDescription("End-to-end duration of generation requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: generation_duration_seconds: %w", err)
	}

	m.AICallsTotal, err = meter.Int64Counter(
		"ai_calls_total",
		metric.WithDescription("Total number of language model calls issued"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: ai_calls_total: %w", err)
	}

	m.AICallErrorsTotal, err = meter.Int64Counter(
		"ai_call_errors_total",
		metric.WithDescription("Total number of failed language model calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: ai_call_errors_total: %w", err)
	}

	m.FallbackDaysTotal, err = meter.Int64Counter(
		"fallback_days_total",
		metric.WithDescription("Total number of days served from deterministic fallback data"),
		metric.WithUnit("{day}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: fallback_days_total: %w", err)
	}

	m.DuplicatesResolvedTotal, err = meter.Int64Counter(
		"duplicates_resolved_total",
		metric.WithDescription("Total number of cross-day duplicate places replaced"),
		metric.WithUnit("{place}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: duplicates_resolved_total: %w", err)
	}

	return m, nil
}
