package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	UseCluster      bool          `env:"REDIS_USE_CLUSTER"`
	Addrs           []string      `env:"REDIS_ADDRS" envSeparator:","` // For cluster
	Addr            string        `env:"REDIS_ADDR"`                   // For single-node
	Password        string        `env:"REDIS_PASSWORD"`
	DB              int           `env:"REDIS_DB"`
	PoolSize        int           `env:"REDIS_POOL_SIZE"`
	DialTimeout     time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	EnableTelemetry bool          `env:"REDIS_ENABLE_TELEMETRY"`
}

func DefaultConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		Addrs:       []string{"localhost:6379"},
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
	}
}

// LoadConfigFromEnv reads REDIS_* variables; unset values fall back to
// DefaultConfig when the client is built.
func LoadConfigFromEnv() (RedisConfig, error) {
	var cfg RedisConfig
	if err := env.Parse(&cfg); err != nil {
		return RedisConfig{}, fmt.Errorf("failed to load redis config: %w", err)
	}
	return cfg, nil
}

func (c *RedisConfig) applyDefaults() {
	defaults := DefaultConfig()

	if c.UseCluster && len(c.Addrs) == 0 {
		c.Addrs = defaults.Addrs
	}
	if !c.UseCluster && c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
}

// NewClient builds the client without contacting the server.
func NewClient(cfg RedisConfig) (redis.UniversalClient, error) {
	cfg.applyDefaults()

	var client redis.UniversalClient
	if cfg.UseCluster {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       cfg.Addrs,
			Password:    cfg.Password,
			PoolSize:    cfg.PoolSize,
			DialTimeout: cfg.DialTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			PoolSize:    cfg.PoolSize,
			DialTimeout: cfg.DialTimeout,
		})
	}

	if cfg.EnableTelemetry {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
		}
	}
	return client, nil
}

// New builds the client and pings it.
func New(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctxTimeout).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
