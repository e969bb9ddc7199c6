package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderFromEnvDisabled(t *testing.T) {
	t.Setenv("OTEL_ENABLE_TRACES", "false")
	t.Setenv("OTEL_ENABLE_METRICS", "false")

	p, err := NewProviderFromEnv()
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, Shutdown(context.Background(), p))
}

func TestNewProviderFromEnvInvalid(t *testing.T) {
	t.Setenv("OTEL_ENABLE_TRACES", "true")
	t.Setenv("OTEL_EXPORTER", "carrier-pigeon")

	_, err := NewProviderFromEnv()
	assert.Error(t, err)
}
