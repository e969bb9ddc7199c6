package accounting

import (
	"context"
	"time"

	"github.com/bignyap/studio-storage/logger/api"
	otelapi "github.com/bignyap/studio-storage/otel/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/bignyap/studio-storage/accounting"

type instruments struct {
	tracer       trace.Tracer
	blobFailures metric.Int64Counter
	recomputes   metric.Int64Counter
	duration     metric.Float64Histogram
}

// newInstruments falls back to no-op instruments for any the meter cannot
// create, logging each failure once.
func newInstruments(provider otelapi.Provider, log api.Logger) *instruments {
	var (
		tracer trace.Tracer
		meter  metric.Meter
	)
	if provider == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	} else {
		tracer = provider.Tracer(instrumentationName)
		meter = provider.Meter(instrumentationName)
	}

	log = api.OrDefault(log).WithComponent("accounting.telemetry")
	noop := metricnoop.NewMeterProvider().Meter(instrumentationName)
	report := func(name string, err error) bool {
		if err == nil {
			return false
		}
		log.Warn(context.Background(), "metric instrument unavailable; recording disabled",
			api.String("instrument", name), api.ErrorField(err))
		return true
	}

	blobFailures, err := meter.Int64Counter(
		"accounting.blob.failures",
		metric.WithDescription("Blob listings or size lookups absorbed as zero bytes"),
	)
	if report("accounting.blob.failures", err) {
		blobFailures, _ = noop.Int64Counter("accounting.blob.failures")
	}
	recomputes, err := meter.Int64Counter(
		"accounting.recomputes",
		metric.WithDescription("Tenant recomputations by outcome"),
	)
	if report("accounting.recomputes", err) {
		recomputes, _ = noop.Int64Counter("accounting.recomputes")
	}
	duration, err := meter.Float64Histogram(
		"accounting.recompute.duration",
		metric.WithDescription("Tenant recomputation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if report("accounting.recompute.duration", err) {
		duration, _ = noop.Float64Histogram("accounting.recompute.duration")
	}

	return &instruments{
		tracer:       tracer,
		blobFailures: blobFailures,
		recomputes:   recomputes,
		duration:     duration,
	}
}

func (i *instruments) blobFailure(ctx context.Context, op string) {
	i.blobFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (i *instruments) recompute(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	i.recomputes.Add(ctx, 1, attrs)
	i.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}
