// Package tenant resolves studios through the accounts service.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/httpclient"
	"github.com/bignyap/studio-storage/memcache"
	"github.com/caarlos0/env"
)

// Config points the directory at the accounts service.
type Config struct {
	BaseURL  string        `env:"TENANT_DIRECTORY_URL"`
	Token    string        `env:"TENANT_DIRECTORY_TOKEN"`
	Timeout  time.Duration `env:"TENANT_DIRECTORY_TIMEOUT" envDefault:"5s"`
	CacheTTL time.Duration `env:"TENANT_DIRECTORY_CACHE_TTL" envDefault:"5m"`
}

func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load tenant directory config: %w", err)
	}
	return cfg, nil
}

// Enabled reports whether an HTTP directory is configured.
func (c Config) Enabled() bool { return c.BaseURL != "" }

type studio struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type studioList struct {
	Studios []studio `json:"studios"`
}

// Directory implements accounting.TenantDirectory over HTTP. Resolved slugs
// are cached for CacheTTL; a zero TTL disables the cache.
type Directory struct {
	client httpclient.Client
	cache  *memcache.Client
}

var _ accounting.TenantDirectory = (*Directory)(nil)

func NewDirectory(cfg Config) (*Directory, error) {
	if !cfg.Enabled() {
		return nil, errors.New("TENANT_DIRECTORY_URL is not set")
	}
	hc := httpclient.DefaultConfig()
	hc.Timeout = cfg.Timeout
	hc.CircuitBreakerCommand = "tenant-directory"
	if cfg.Token != "" {
		hc.Headers = map[string]string{"Authorization": "Bearer " + cfg.Token}
	}
	client, err := httpclient.NewHystrixClient(cfg.BaseURL, hc)
	if err != nil {
		return nil, err
	}
	return NewDirectoryWithClient(client, cfg.CacheTTL), nil
}

func NewDirectoryWithClient(client httpclient.Client, ttl time.Duration) *Directory {
	d := &Directory{client: client}
	if ttl > 0 {
		d.cache = memcache.New(memcache.Config{DefaultTTL: ttl})
	}
	return d
}

func (d *Directory) Resolve(ctx context.Context, slug string) (string, error) {
	if d.cache != nil {
		if id, ok := d.cache.GetString(slug); ok {
			return id, nil
		}
	}

	var s studio
	err := d.client.Get(ctx, "/v1/studios/"+url.PathEscape(slug), nil, &s)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", accounting.ErrTenantNotFound, slug)
		}
		return "", fmt.Errorf("failed to resolve studio %q: %w", slug, err)
	}
	if s.ID == "" {
		return "", fmt.Errorf("%w: %s", accounting.ErrTenantNotFound, slug)
	}

	if d.cache != nil {
		d.cache.Set(slug, s.ID, 0)
	}
	return s.ID, nil
}

func (d *Directory) List(ctx context.Context) ([]accounting.Tenant, error) {
	var list studioList
	if err := d.client.Get(ctx, "/v1/studios", nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list studios: %w", err)
	}
	tenants := make([]accounting.Tenant, 0, len(list.Studios))
	for _, s := range list.Studios {
		tenants = append(tenants, accounting.Tenant{ID: s.ID, Slug: s.Slug, Name: s.Name})
	}
	return tenants, nil
}
