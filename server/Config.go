package server

import (
	"context"
	"fmt"
	"time"

	"github.com/bignyap/studio-storage/logger/api"
	"github.com/caarlos0/env"
	"github.com/gin-gonic/gin"
)

// Server defines the HTTP server contract
type Server interface {
	Start() error
	Router() *gin.Engine
	Shutdown(ctx context.Context) error
	GetResponseWriter() *ResponseWriter
	GetLogger() api.Logger
}

// Config defines runtime configuration
type Config struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Environment     string        `env:"APP_ENV" envDefault:"dev"`
	Version         string        `env:"APP_VERSION" envDefault:"dev"`
	MaxRequestSize  int64         `env:"SERVER_MAX_REQUEST_SIZE" envDefault:"1048576"`
	EnableProfiling bool          `env:"SERVER_ENABLE_PROFILING" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		Environment:     "dev",
		Version:         "dev",
		MaxRequestSize:  1 << 20, // 1 MB; request bodies are tiny
		EnableProfiling: false,
		ShutdownTimeout: 15 * time.Second,
	}
}

// LoadConfigFromEnv reads SERVER_* and APP_* variables.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	return cfg, nil
}

// Handler allows for modular startup and teardown
type Handler interface {
	Setup(server Server) error
	Shutdown() error
}
