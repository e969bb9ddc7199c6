package config

import (
	"fmt"

	"github.com/caarlos0/env"
)

// LogConfig defines all configuration options for loggers
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error, none)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format determines the output format (json, pretty)
	Format string `env:"LOG_FORMAT" envDefault:"json"`

	// Output determines where logs are written (stdout, stderr, file)
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"`

	// FilePath is used when Output is "file"
	FilePath string `env:"LOG_FILE" envDefault:"./logs/storage-accountant.log"`

	// Environment affects logging behavior (dev, test, prod)
	Environment string `env:"APP_ENV" envDefault:"dev"`

	// Fields contains default fields to add to all log messages
	Fields map[string]interface{}
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		Output:      "stdout",
		FilePath:    "./logs/storage-accountant.log",
		Environment: "dev",
		Fields:      map[string]interface{}{},
	}
}

// DevelopmentConfig returns a configuration optimized for development
func DevelopmentConfig() LogConfig {
	config := DefaultConfig()
	config.Level = "debug"
	config.Format = "pretty"
	return config
}

// LoadFromEnv reads LOG_* variables on top of the defaults.
func LoadFromEnv() (LogConfig, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return LogConfig{}, fmt.Errorf("failed to load log config: %w", err)
	}
	return cfg, nil
}
