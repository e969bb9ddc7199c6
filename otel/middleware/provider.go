package middleware

import (
	"github.com/bignyap/studio-storage/otel/api"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
)

// tracerProvider adapts api.Provider to trace.TracerProvider for otelgin.
type tracerProvider struct {
	embedded.TracerProvider
	p api.Provider
}

func (t tracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return t.p.Tracer(name, opts...)
}
