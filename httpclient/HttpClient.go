// Package httpclient provides an HTTP client with retry, circuit breaker and
// TLS support, built on gojek/heimdall with a Hystrix command per client.
package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bignyap/studio-storage/logger/api"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/gojek/heimdall/v7/hystrix"
)

// Client is the read-only JSON client used by directory adapters.
type Client interface {
	Get(ctx context.Context, path string, queryParams map[string]string, response any) error
}

// StatusError is returned for responses with a status of 400 or above.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// ClientConfig defines configuration for retries, backoff, and circuit breaker.
type ClientConfig struct {
	Timeout                time.Duration
	RetryCount             int
	BackoffInitial         time.Duration
	BackoffMax             time.Duration
	CircuitBreakerCommand  string
	CircuitBreakerTimeout  time.Duration
	MaxConcurrentRequests  int
	ErrorPercentThreshold  int
	SleepWindow            int
	RequestVolumeThreshold int
	Headers                map[string]string
	TLSClientConfig        TLSClientConfig
}

// TLSClientConfig supports TLS and mTLS configurations.
type TLSClientConfig struct {
	SkipTLSVerify  bool
	CACertPaths    []string
	ClientCertPath string
	ClientKeyPath  string
}

type circuitClient struct {
	baseURL string
	headers map[string]string
	client  *hystrix.Client
}

var _ Client = (*circuitClient)(nil)

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout:                10 * time.Second,
		RetryCount:             3,
		BackoffInitial:         100 * time.Millisecond,
		BackoffMax:             2 * time.Second,
		CircuitBreakerCommand:  "http-client",
		CircuitBreakerTimeout:  10 * time.Second,
		MaxConcurrentRequests:  100,
		ErrorPercentThreshold:  25,
		SleepWindow:            10,
		RequestVolumeThreshold: 10,
	}
}

func (c *ClientConfig) applyDefaults() {
	defaults := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.RetryCount == 0 {
		c.RetryCount = defaults.RetryCount
	}
	if c.BackoffInitial == 0 {
		c.BackoffInitial = defaults.BackoffInitial
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = defaults.BackoffMax
	}
	if c.CircuitBreakerCommand == "" {
		c.CircuitBreakerCommand = defaults.CircuitBreakerCommand
	}
	if c.CircuitBreakerTimeout == 0 {
		c.CircuitBreakerTimeout = defaults.CircuitBreakerTimeout
	}
	if c.MaxConcurrentRequests == 0 {
		c.MaxConcurrentRequests = defaults.MaxConcurrentRequests
	}
	if c.ErrorPercentThreshold == 0 {
		c.ErrorPercentThreshold = defaults.ErrorPercentThreshold
	}
	if c.SleepWindow == 0 {
		c.SleepWindow = defaults.SleepWindow
	}
	if c.RequestVolumeThreshold == 0 {
		c.RequestVolumeThreshold = defaults.RequestVolumeThreshold
	}
}

// NewHystrixClient creates a Heimdall Hystrix client with retries, backoff,
// and optional TLS/mTLS. A negative RetryCount disables retries.
func NewHystrixClient(baseURL string, config ClientConfig) (Client, error) {
	config.applyDefaults()

	transport, err := createCustomTransport(config.TLSClientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS transport: %w", err)
	}

	retries := max(config.RetryCount, 0)
	bo := heimdall.NewExponentialBackoff(config.BackoffInitial, config.BackoffMax, 2.0, config.BackoffInitial)
	httpClient := httpclient.NewClient(
		httpclient.WithHTTPClient(&http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		}),
		httpclient.WithRetryCount(retries),
		httpclient.WithRetrier(heimdall.NewRetrier(bo)),
	)

	hystrixClient := hystrix.NewClient(
		hystrix.WithHTTPClient(httpClient),
		hystrix.WithCommandName(config.CircuitBreakerCommand),
		hystrix.WithHystrixTimeout(config.CircuitBreakerTimeout),
		hystrix.WithMaxConcurrentRequests(config.MaxConcurrentRequests),
		hystrix.WithErrorPercentThreshold(config.ErrorPercentThreshold),
		hystrix.WithSleepWindow(config.SleepWindow),
		hystrix.WithRequestVolumeThreshold(config.RequestVolumeThreshold),
	)

	return &circuitClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: config.Headers,
		client:  hystrixClient,
	}, nil
}

func (c *circuitClient) Get(ctx context.Context, path string, queryParams map[string]string, response any) error {
	finalURL := InjectQueryParams(c.BuildURL(path), queryParams)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	propagateTraceID(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// propagateTraceID copies the trace id from the request context to X-Trace-ID.
func propagateTraceID(req *http.Request) {
	if traceID := api.GetTraceIDFromContext(req.Context()); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}
}

// BuildURL joins path segments onto the base URL. Absolute URLs pass through.
func (c *circuitClient) BuildURL(paths ...string) string {
	if len(paths) == 1 && (strings.HasPrefix(paths[0], "http://") || strings.HasPrefix(paths[0], "https://")) {
		return paths[0]
	}
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		if trimmed := strings.Trim(p, "/"); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return c.baseURL + "/" + strings.Join(parts, "/")
}

func InjectQueryParams(rawURL string, queryParams map[string]string) string {
	if len(queryParams) == 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, v := range queryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func createCustomTransport(cfg TLSClientConfig) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify}

	if len(cfg.CACertPaths) > 0 {
		certPool := x509.NewCertPool()
		for _, path := range cfg.CACertPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read CA cert: %w", err)
			}
			if !certPool.AppendCertsFromPEM(data) {
				return nil, fmt.Errorf("append CA cert failed: %s", path)
			}
		}
		tlsConfig.RootCAs = certPool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	transport.TLSClientConfig = tlsConfig
	return transport, nil
}
