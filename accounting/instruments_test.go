package accounting_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bignyap/studio-storage/accounting"
	oteladapter "github.com/bignyap/studio-storage/otel/adapters/otel"
	"github.com/bignyap/studio-storage/otel/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRecomputeEmitsSpansAndMetrics(t *testing.T) {
	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	provider, err := oteladapter.NewOtelProvider(config.DefaultConfig(),
		oteladapter.WithSpanExporter(spans),
		oteladapter.WithMetricReader(reader),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	f := newFixture(t)
	f.blobs.failSize["tenants/t1/offers/o1.jpg"] = errors.New("timeout")
	acct, err := accounting.NewAccountant(testConfig(), nil, accounting.Deps{
		Tenants:   f.dir,
		Catalog:   f.catalog,
		Blobs:     f.blobs,
		Snapshots: f.snapshots,
		Telemetry: provider,
	})
	require.NoError(t, err)

	_, err = acct.Recompute(context.Background(), "lumen")
	require.NoError(t, err)

	names := map[string]int{}
	for _, s := range spans.GetSpans() {
		names[s.Name]++
	}
	assert.Equal(t, 1, names["accounting.recompute"])
	assert.Equal(t, len(accounting.Kinds), names["accounting.collect"])
	assert.Equal(t, 1, names["accounting.crawl"], "nested folders share the root crawl span")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	got := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			got[m.Name] = true
		}
	}
	assert.True(t, got["accounting.recomputes"])
	assert.True(t, got["accounting.recompute.duration"])
	assert.True(t, got["accounting.blob.failures"])
}
