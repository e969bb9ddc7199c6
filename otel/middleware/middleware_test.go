package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	oteladapter "github.com/bignyap/studio-storage/otel/adapters/otel"
	"github.com/bignyap/studio-storage/otel/config"
	"github.com/bignyap/studio-storage/otel/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMiddlewaresRecordThroughProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)

	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	provider, err := oteladapter.NewOtelProvider(config.DefaultConfig(),
		oteladapter.WithSpanExporter(spans),
		oteladapter.WithMetricReader(reader),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(middleware.OtelMiddleware("storage-accountant", provider), middleware.MetricsMiddleware(provider))
	router.GET("/v1/tenants/:slug/storage", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tenants/lumen/storage", nil))
	require.Equal(t, http.StatusOK, w.Code)

	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Name, "/v1/tenants/:slug/storage")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["http.server.requests"])
	assert.True(t, names["http.server.duration"])
}
