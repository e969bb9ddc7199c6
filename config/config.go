// Package config gathers every concern's environment configuration.
package config

import (
	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/database"
	"github.com/bignyap/studio-storage/kafka"
	logconfig "github.com/bignyap/studio-storage/logger/config"
	otelconfig "github.com/bignyap/studio-storage/otel/config"
	"github.com/bignyap/studio-storage/redisclient"
	"github.com/bignyap/studio-storage/server"
	storageconfig "github.com/bignyap/studio-storage/storage/config"
	"github.com/bignyap/studio-storage/tenant"
	"github.com/bignyap/studio-storage/trigger"
	"go.uber.org/multierr"
)

type Config struct {
	Log        logconfig.LogConfig
	Server     *server.Config
	Database   database.Config
	Storage    storageconfig.Config
	Accounting accounting.Config
	Otel       otelconfig.OtelConfig
	Tenant     tenant.Config
	Trigger    trigger.Config
	Kafka      kafka.Config
	Redis      redisclient.RedisConfig
}

// Load reads every section and reports all failures together.
func Load() (Config, error) {
	var (
		cfg  Config
		errs error
		err  error
	)

	cfg.Log, err = logconfig.LoadFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Server, err = server.LoadConfigFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Database, err = database.LoadConfigFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Storage, err = storageconfig.LoadFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Accounting, err = accounting.LoadConfigFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Otel, err = otelconfig.LoadFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Tenant, err = tenant.LoadConfigFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Trigger, err = trigger.LoadConfigFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Kafka, err = kafka.LoadConfigFromEnv()
	errs = multierr.Append(errs, err)
	cfg.Redis, err = redisclient.LoadConfigFromEnv()
	errs = multierr.Append(errs, err)

	if errs != nil {
		return Config{}, errs
	}
	cfg.Accounting.Bucket = cfg.Storage.Bucket()
	return cfg, nil
}
