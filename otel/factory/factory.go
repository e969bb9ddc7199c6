package factory

import (
	"context"
	"fmt"

	"github.com/bignyap/studio-storage/otel/adapters/otel"
	"github.com/bignyap/studio-storage/otel/api"
	"github.com/bignyap/studio-storage/otel/config"
)

// NewProvider creates a new OpenTelemetry provider based on configuration
func NewProvider(cfg config.OtelConfig, opts ...otel.Option) (api.Provider, error) {
	return otel.NewOtelProvider(cfg, opts...)
}

// NewProviderFromEnv builds a provider from OTEL_* variables. It returns a
// nil provider when both traces and metrics are disabled; callers treat nil
// as no-op telemetry.
func NewProviderFromEnv() (api.Provider, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if !cfg.EnableTraces && !cfg.EnableMetrics {
		return nil, nil
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry provider: %w", err)
	}
	return provider, nil
}

// Shutdown gracefully shuts down provider. It is safe to call with nil.
func Shutdown(ctx context.Context, provider api.Provider) error {
	if provider == nil {
		return nil
	}
	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown telemetry provider: %w", err)
	}
	return nil
}
