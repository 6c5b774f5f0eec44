package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the otel meter provider that records submission
// pipeline timings. The zero value is usable and records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	submitCounter otelmetric.Int64Counter
	stepDuration  otelmetric.Float64Histogram
}

// New registers a Prometheus exporter on the default registerer. An exporter
// failure is returned alongside a no-op instance so callers can keep running.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	submitCounter, _ := meter.Int64Counter(
		"submissions.completed",
		otelmetric.WithDescription("Number of submission cycles that reached a terminal outcome"),
	)

	stepDuration, _ := meter.Float64Histogram(
		"submissions.step.duration",
		otelmetric.WithDescription("Duration of network steps in the submission pipeline"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		submitCounter: submitCounter,
		stepDuration:  stepDuration,
	}, nil
}

// RecordSubmission counts one finished cycle with its outcome
// ("dispatched", "failed", "cancelled").
func (o *Observability) RecordSubmission(ctx context.Context, outcome string) {
	if o == nil || o.submitCounter == nil {
		return
	}
	o.submitCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordStep records how long a network step (schema, preflight, dispatch)
// took.
func (o *Observability) RecordStep(ctx context.Context, step string, duration time.Duration, ok bool) {
	if o == nil || o.stepDuration == nil {
		return
	}
	o.stepDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("ok", ok),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
