package config

import (
	"fmt"

	"github.com/caarlos0/env"
)

// ExporterType defines the type of exporter to use
type ExporterType string

const (
	ExporterTypeConsole    ExporterType = "console"
	ExporterTypeOTLP       ExporterType = "otlp"
	ExporterTypeElasticAPM ExporterType = "elastic-apm"
)

// SamplingType defines the type of sampling strategy
type SamplingType string

const (
	SamplingTypeAlwaysOn  SamplingType = "always-on"
	SamplingTypeAlwaysOff SamplingType = "always-off"
	SamplingTypeTraceID   SamplingType = "traceid-ratio"
)

// OtelConfig is the main configuration for OpenTelemetry
type OtelConfig struct {
	Resource       ResourceConfig
	TraceExporter  ExporterConfig
	MetricExporter ExporterConfig
	Sampling       SamplingConfig
	EnableTraces   bool
	EnableMetrics  bool
}

// ResourceConfig contains service resource attributes
type ResourceConfig struct {
	ServiceName        string
	ServiceVersion     string
	ServiceEnvironment string
	ServiceInstanceID  string
	CustomAttributes   map[string]string
}

// ExporterConfig contains exporter configuration
type ExporterConfig struct {
	// Type is the exporter type (console, otlp, elastic-apm)
	Type ExporterType

	// Endpoint is the OTLP gRPC endpoint (host:port)
	Endpoint string

	Headers map[string]string

	// Insecure disables TLS
	Insecure bool

	ElasticAPM ElasticAPMConfig
}

// ElasticAPMConfig contains Elastic APM specific configuration
type ElasticAPMConfig struct {
	ServerURL   string
	SecretToken string
	APIKey      string
}

// SamplingConfig contains sampling configuration
type SamplingConfig struct {
	Type SamplingType
	// Ratio is the sampling ratio (0.0 to 1.0) for traceid-ratio sampling
	Ratio float64
}

// Validate validates the configuration
func (c *OtelConfig) Validate() error {
	if c.Resource.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	if c.EnableTraces {
		if err := c.TraceExporter.Validate(); err != nil {
			return fmt.Errorf("trace exporter config invalid: %w", err)
		}
	}

	if c.EnableMetrics {
		if err := c.MetricExporter.Validate(); err != nil {
			return fmt.Errorf("metric exporter config invalid: %w", err)
		}
	}

	if c.Sampling.Type == SamplingTypeTraceID {
		if c.Sampling.Ratio < 0 || c.Sampling.Ratio > 1 {
			return fmt.Errorf("sampling ratio must be between 0.0 and 1.0")
		}
	}

	return nil
}

// Validate validates the exporter configuration
func (e *ExporterConfig) Validate() error {
	switch e.Type {
	case ExporterTypeConsole:
		return nil
	case ExporterTypeOTLP:
		if e.Endpoint == "" {
			return fmt.Errorf("OTLP endpoint is required")
		}
		return nil
	case ExporterTypeElasticAPM:
		if e.ElasticAPM.ServerURL == "" {
			return fmt.Errorf("Elastic APM server URL is required")
		}
		if e.ElasticAPM.SecretToken == "" && e.ElasticAPM.APIKey == "" {
			return fmt.Errorf("Elastic APM requires either secret token or API key")
		}
		return nil
	default:
		return fmt.Errorf("unknown exporter type: %s", e.Type)
	}
}

// envConfig is the flat OTEL_* view that LoadFromEnv maps onto OtelConfig.
type envConfig struct {
	EnableTraces  bool    `env:"OTEL_ENABLE_TRACES" envDefault:"false"`
	EnableMetrics bool    `env:"OTEL_ENABLE_METRICS" envDefault:"false"`
	ServiceName   string  `env:"OTEL_SERVICE_NAME" envDefault:"storage-accountant"`
	Version       string  `env:"OTEL_SERVICE_VERSION" envDefault:"0.0.0"`
	Environment   string  `env:"OTEL_SERVICE_ENVIRONMENT" envDefault:"development"`
	InstanceID    string  `env:"OTEL_SERVICE_INSTANCE_ID"`
	Exporter      string  `env:"OTEL_EXPORTER" envDefault:"console"`
	Endpoint      string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure      bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	SamplingType  string  `env:"OTEL_SAMPLING_TYPE" envDefault:"always-on"`
	SamplingRatio float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"1.0"`
	APMServerURL  string  `env:"ELASTIC_APM_SERVER_URL" envDefault:"http://apm-server:8200"`
	APMToken      string  `env:"ELASTIC_APM_SECRET_TOKEN"`
	APMKey        string  `env:"ELASTIC_APM_API_KEY"`
}

// LoadFromEnv reads OTEL_* and ELASTIC_APM_* variables. Traces and metrics
// share one exporter.
func LoadFromEnv() (OtelConfig, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return OtelConfig{}, fmt.Errorf("failed to load otel config: %w", err)
	}

	exporter := ExporterConfig{
		Type:     ExporterType(e.Exporter),
		Endpoint: e.Endpoint,
		Insecure: e.Insecure,
		ElasticAPM: ElasticAPMConfig{
			ServerURL:   e.APMServerURL,
			SecretToken: e.APMToken,
			APIKey:      e.APMKey,
		},
	}

	return OtelConfig{
		Resource: ResourceConfig{
			ServiceName:        e.ServiceName,
			ServiceVersion:     e.Version,
			ServiceEnvironment: e.Environment,
			ServiceInstanceID:  e.InstanceID,
			CustomAttributes:   map[string]string{},
		},
		TraceExporter:  exporter,
		MetricExporter: exporter,
		Sampling: SamplingConfig{
			Type:  SamplingType(e.SamplingType),
			Ratio: e.SamplingRatio,
		},
		EnableTraces:  e.EnableTraces,
		EnableMetrics: e.EnableMetrics,
	}, nil
}

// DefaultConfig returns a console-exporting configuration
func DefaultConfig() OtelConfig {
	return OtelConfig{
		Resource: ResourceConfig{
			ServiceName:        "storage-accountant",
			ServiceVersion:     "0.0.0",
			ServiceEnvironment: "development",
			CustomAttributes:   make(map[string]string),
		},
		TraceExporter:  ExporterConfig{Type: ExporterTypeConsole, Insecure: true},
		MetricExporter: ExporterConfig{Type: ExporterTypeConsole, Insecure: true},
		Sampling:       SamplingConfig{Type: SamplingTypeAlwaysOn, Ratio: 1.0},
		EnableTraces:   true,
		EnableMetrics:  true,
	}
}
