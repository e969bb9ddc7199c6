package middleware

import (
	"time"

	"github.com/bignyap/studio-storage/otel/api"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OtelMiddleware traces every request with otelgin. The provider's tracer
// is used when one is configured, otherwise the global one.
func OtelMiddleware(serviceName string, provider api.Provider, opts ...otelgin.Option) gin.HandlerFunc {
	if provider != nil {
		opts = append(opts, otelgin.WithTracerProvider(tracerProvider{p: provider}))
	}
	return otelgin.Middleware(serviceName, opts...)
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware(provider api.Provider) gin.HandlerFunc {
	meter := provider.Meter("gin-http-server")

	requestCounter, _ := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
	)

	requestDuration, _ := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	activeRequests, _ := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)

	return func(c *gin.Context) {
		route := metric.WithAttributes(
			attribute.String(api.HTTPMethodKey, c.Request.Method),
			attribute.String(api.HTTPRouteKey, c.FullPath()),
		)
		activeRequests.Add(c.Request.Context(), 1, route)
		start := time.Now()

		c.Next()

		attrs := metric.WithAttributes(
			attribute.String(api.HTTPMethodKey, c.Request.Method),
			attribute.String(api.HTTPRouteKey, c.FullPath()),
			attribute.Int(api.HTTPStatusCodeKey, c.Writer.Status()),
		)
		requestCounter.Add(c.Request.Context(), 1, attrs)
		requestDuration.Record(c.Request.Context(), float64(time.Since(start).Milliseconds()), attrs)
		activeRequests.Add(c.Request.Context(), -1, route)
	}
}
