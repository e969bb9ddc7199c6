package factory

import (
	"github.com/bignyap/studio-storage/logger/adapters/zerolog"
	"github.com/bignyap/studio-storage/logger/api"
	"github.com/bignyap/studio-storage/logger/config"
)

// NewLogger creates a new logger instance based on configuration
func NewLogger(cfg config.LogConfig) (api.Logger, error) {
	// Currently we only support zerolog
	return zerolog.NewZerologger(cfg)
}

// NewLoggerFromEnv builds a logger from LOG_* environment variables.
func NewLoggerFromEnv() (api.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return NewLogger(cfg)
}
