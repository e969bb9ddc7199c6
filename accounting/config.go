package accounting

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

// DefaultQuotaBytes is the quota given to a tenant on its first snapshot.
const DefaultQuotaBytes int64 = 10 << 30

type Config struct {
	PageSize          int           `env:"ACCOUNTING_PAGE_SIZE" envDefault:"1000"`
	LookupConcurrency int           `env:"ACCOUNTING_LOOKUP_CONCURRENCY" envDefault:"8"`
	DefaultQuotaBytes int64         `env:"ACCOUNTING_DEFAULT_QUOTA_BYTES" envDefault:"10737418240"`
	RecomputeTimeout  time.Duration `env:"ACCOUNTING_RECOMPUTE_TIMEOUT" envDefault:"2m"`
	PolicyFile        string        `env:"ACCOUNTING_POLICY_FILE"`
	// Bucket is stripped from path-style reference URLs. Filled from the
	// storage configuration rather than its own variable.
	Bucket string
}

func DefaultConfig() Config {
	return Config{
		PageSize:          1000,
		LookupConcurrency: 8,
		DefaultQuotaBytes: DefaultQuotaBytes,
		RecomputeTimeout:  2 * time.Minute,
	}
}

func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load accounting config: %w", err)
	}
	return cfg, nil
}

// Policy returns the configured policy file, or DefaultPolicy when unset.
func (c Config) Policy() (Policy, error) {
	if c.PolicyFile == "" {
		return DefaultPolicy(), nil
	}
	return LoadPolicyFile(c.PolicyFile)
}

func (c Config) concurrency() int {
	if c.LookupConcurrency <= 0 {
		return 8
	}
	return c.LookupConcurrency
}
