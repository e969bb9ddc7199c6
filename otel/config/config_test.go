package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLE_TRACES", "true")
	t.Setenv("OTEL_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SAMPLING_TYPE", "traceid-ratio")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.EnableTraces)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, "storage-accountant", cfg.Resource.ServiceName)
	assert.Equal(t, ExporterTypeOTLP, cfg.TraceExporter.Type)
	assert.Equal(t, "collector:4317", cfg.MetricExporter.Endpoint)
	assert.Equal(t, 0.25, cfg.Sampling.Ratio)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Resource.ServiceName = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TraceExporter = ExporterConfig{Type: ExporterTypeElasticAPM, ElasticAPM: ElasticAPMConfig{ServerURL: "http://apm:8200"}}
	assert.ErrorContains(t, cfg.Validate(), "secret token or API key")

	cfg = DefaultConfig()
	cfg.Sampling = SamplingConfig{Type: SamplingTypeTraceID, Ratio: 2}
	assert.Error(t, cfg.Validate())
}
