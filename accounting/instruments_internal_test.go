package accounting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bignyap/studio-storage/logger/adapters/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type brokenCounterMeter struct{ metricnoop.Meter }

func (brokenCounterMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("conflicting instrument kind")
}

type brokenMeterProvider struct{}

func (brokenMeterProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer(name)
}

func (brokenMeterProvider) Meter(string, ...metric.MeterOption) metric.Meter {
	return brokenCounterMeter{}
}

func (brokenMeterProvider) Shutdown(context.Context) error { return nil }

func TestInstrumentsReportCreationFailures(t *testing.T) {
	log := mock.NewMockLogger()
	tel := newInstruments(brokenMeterProvider{}, log)

	require.NotNil(t, tel.blobFailures)
	require.NotNil(t, tel.recomputes)
	assert.NotPanics(t, func() {
		tel.blobFailure(context.Background(), "size")
		tel.recompute(context.Background(), "ok", time.Millisecond)
	})

	warnings := log.Warnings()
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Contains(t, w.Message, "metric instrument unavailable")
	}
	name, _ := warnings[0].Field("instrument")
	assert.Equal(t, "accounting.blob.failures", name)
}

func TestInstrumentsQuietWithoutProvider(t *testing.T) {
	log := mock.NewMockLogger()
	newInstruments(nil, log)
	assert.Empty(t, log.Warnings())
}
