package api

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Provider combines TracerProvider and MeterProvider for unified OpenTelemetry access
type Provider interface {
	// Tracer returns a tracer for creating spans
	Tracer(name string, opts ...trace.TracerOption) trace.Tracer

	// Meter returns a meter for recording metrics
	Meter(name string, opts ...metric.MeterOption) metric.Meter

	// Shutdown gracefully shuts down the provider
	Shutdown(ctx context.Context) error
}

// Semantic conventions for HTTP
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
)

// Attribute keys shared by the accounting spans and log fields.
const (
	TenantIDKey   = "tenant.id"
	TenantSlugKey = "tenant.slug"
	KindKey       = "accounting.kind"
	BlobPrefixKey = "blob.prefix"
)

func TenantSlug(slug string) attribute.KeyValue {
	return attribute.String(TenantSlugKey, slug)
}

func TenantID(id string) attribute.KeyValue {
	return attribute.String(TenantIDKey, id)
}

// RecordError records an error in the current span
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err, opts...)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
