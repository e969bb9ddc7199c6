package otel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bignyap/studio-storage/otel/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
	"google.golang.org/grpc/credentials/insecure"
)

// exportTarget is where an exporter ships to. Elastic APM ingests OTLP
// over HTTP; plain OTLP goes over gRPC.
type exportTarget struct {
	endpoint string
	insecure bool
	headers  map[string]string
	overHTTP bool
}

func resolveTarget(e config.ExporterConfig) exportTarget {
	if e.Type != config.ExporterTypeElasticAPM {
		return exportTarget{endpoint: e.Endpoint, insecure: e.Insecure, headers: e.Headers}
	}

	t := exportTarget{endpoint: e.ElasticAPM.ServerURL, overHTTP: true}
	https := false
	// OTLP HTTP exporters take host:port, not a URL.
	if strings.Contains(t.endpoint, "://") {
		if u, err := url.Parse(t.endpoint); err == nil {
			t.endpoint = u.Host
			https = u.Scheme == "https"
		}
	}
	t.insecure = e.Insecure || !https

	switch {
	case e.ElasticAPM.SecretToken != "":
		t.headers = map[string]string{"Authorization": "Bearer " + e.ElasticAPM.SecretToken}
	case e.ElasticAPM.APIKey != "":
		t.headers = map[string]string{"Authorization": "ApiKey " + e.ElasticAPM.APIKey}
	}
	return t
}

// OtelProvider implements the api.Provider interface using OpenTelemetry SDK
type OtelProvider struct {
	config         config.OtelConfig
	resource       *resource.Resource
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	spanExporter sdktrace.SpanExporter
	metricReader sdkmetric.Reader
}

// Option overrides the exporters built from config.
type Option func(*OtelProvider)

// WithSpanExporter exports spans synchronously to e, e.g. an in-memory
// exporter in tests.
func WithSpanExporter(e sdktrace.SpanExporter) Option {
	return func(p *OtelProvider) { p.spanExporter = e }
}

// WithMetricReader collects metrics through r instead of a periodic exporter.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(p *OtelProvider) { p.metricReader = r }
}

// NewOtelProvider creates a new OpenTelemetry provider and installs it as
// the global tracer and meter provider.
func NewOtelProvider(cfg config.OtelConfig, opts ...Option) (*OtelProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	provider := &OtelProvider{
		config: cfg,
	}
	for _, opt := range opts {
		opt(provider)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	res, err := provider.createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	provider.resource = res

	if cfg.EnableTraces {
		tp, err := provider.createTracerProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer provider: %w", err)
		}
		provider.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	if cfg.EnableMetrics {
		mp, err := provider.createMeterProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create meter provider: %w", err)
		}
		provider.meterProvider = mp
		otel.SetMeterProvider(mp)
	}

	return provider, nil
}

func (p *OtelProvider) createResource() (*resource.Resource, error) {
	rc := p.config.Resource
	attrs := []attribute.KeyValue{
		semconv.ServiceName(rc.ServiceName),
		semconv.ServiceVersion(rc.ServiceVersion),
	}
	if rc.ServiceEnvironment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(rc.ServiceEnvironment))
	}
	if rc.ServiceInstanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(rc.ServiceInstanceID))
	}
	for k, v := range rc.CustomAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.New(context.Background(), resource.WithAttributes(attrs...))
}

func (p *OtelProvider) createTracerProvider() (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(p.resource),
		sdktrace.WithSampler(p.createSampler()),
	}

	if p.spanExporter != nil {
		return sdktrace.NewTracerProvider(append(opts, sdktrace.WithSyncer(p.spanExporter))...), nil
	}

	exporter, err := p.createTraceExporter(context.Background())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(append(opts, sdktrace.WithBatcher(exporter))...), nil
}

func (p *OtelProvider) createTraceExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	cfg := p.config.TraceExporter
	if cfg.Type == config.ExporterTypeConsole {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	if cfg.Type != config.ExporterTypeOTLP && cfg.Type != config.ExporterTypeElasticAPM {
		return nil, fmt.Errorf("unsupported trace exporter type: %s", cfg.Type)
	}

	t := resolveTarget(cfg)
	if t.overHTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(t.endpoint)}
		if t.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(t.headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(t.headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.endpoint)}
	if t.insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if len(t.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(t.headers))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func (p *OtelProvider) createMeterProvider() (*sdkmetric.MeterProvider, error) {
	reader := p.metricReader
	if reader == nil {
		exporter, err := p.createMetricExporter(context.Background())
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(p.resource),
	), nil
}

func (p *OtelProvider) createMetricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	cfg := p.config.MetricExporter
	if cfg.Type == config.ExporterTypeConsole {
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	}
	if cfg.Type != config.ExporterTypeOTLP && cfg.Type != config.ExporterTypeElasticAPM {
		return nil, fmt.Errorf("unsupported metric exporter type: %s", cfg.Type)
	}

	t := resolveTarget(cfg)
	if t.overHTTP {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(t.endpoint)}
		if t.insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(t.headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(t.headers))
		}
		return otlpmetrichttp.New(ctx, opts...)
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(t.endpoint)}
	if t.insecure {
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if len(t.headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(t.headers))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (p *OtelProvider) createSampler() sdktrace.Sampler {
	switch p.config.Sampling.Type {
	case config.SamplingTypeAlwaysOn:
		return sdktrace.AlwaysSample()
	case config.SamplingTypeAlwaysOff:
		return sdktrace.NeverSample()
	case config.SamplingTypeTraceID:
		return sdktrace.TraceIDRatioBased(p.config.Sampling.Ratio)
	default:
		return sdktrace.AlwaysSample()
	}
}

// Tracer returns a tracer for creating spans
func (p *OtelProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.tracerProvider == nil {
		return tracenoop.NewTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name, opts...)
}

// Meter returns a meter for recording metrics
func (p *OtelProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.meterProvider == nil {
		return noop.NewMeterProvider().Meter(name)
	}
	return p.meterProvider.Meter(name, opts...)
}

// Shutdown flushes and stops both providers, reporting every failure.
func (p *OtelProvider) Shutdown(ctx context.Context) error {
	var err error

	if p.tracerProvider != nil {
		if e := p.tracerProvider.Shutdown(ctx); e != nil {
			err = multierr.Append(err, fmt.Errorf("failed to shutdown tracer provider: %w", e))
		}
	}

	if p.meterProvider != nil {
		if e := p.meterProvider.Shutdown(ctx); e != nil {
			err = multierr.Append(err, fmt.Errorf("failed to shutdown meter provider: %w", e))
		}
	}

	return err
}
