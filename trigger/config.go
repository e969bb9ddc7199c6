package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"
)

// Source names the transport events arrive on.
type Source string

const (
	SourceNone  Source = "none"
	SourceKafka Source = "kafka"
	SourceRedis Source = "redis"
)

type Config struct {
	Source        string        `env:"TRIGGER_SOURCE" envDefault:"none"`
	Debounce      time.Duration `env:"TRIGGER_DEBOUNCE" envDefault:"30s"`
	SweepInterval time.Duration `env:"TRIGGER_SWEEP_INTERVAL" envDefault:"0"`
	RedisChannel  string        `env:"REDIS_CHANNEL" envDefault:"studio.media.events"`
	RedisPrefix   string        `env:"REDIS_CHANNEL_NAMESPACE"`
}

func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load trigger config: %w", err)
	}
	if _, err := cfg.ParseSource(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) ParseSource() (Source, error) {
	switch s := Source(strings.ToLower(c.Source)); s {
	case "", SourceNone:
		return SourceNone, nil
	case SourceKafka, SourceRedis:
		return s, nil
	default:
		return "", fmt.Errorf("unsupported trigger source: %s", c.Source)
	}
}
