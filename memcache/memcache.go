// Package memcache is a process-local TTL cache.
package memcache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

type Client struct {
	c *cache.Cache
}

type Config struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// New builds a cache. A zero CleanupInterval defaults to twice DefaultTTL.
func New(cfg Config) *Client {
	if cfg.CleanupInterval == 0 && cfg.DefaultTTL > 0 {
		cfg.CleanupInterval = 2 * cfg.DefaultTTL
	}
	return &Client{
		c: cache.New(cfg.DefaultTTL, cfg.CleanupInterval),
	}
}

// Set stores val; a zero ttl uses DefaultTTL.
func (mc *Client) Set(key string, val interface{}, ttl time.Duration) {
	mc.c.Set(key, val, ttlOrDefault(ttl))
}

func (mc *Client) Get(key string) (interface{}, bool) {
	return mc.c.Get(key)
}

// GetString is Get for string values.
func (mc *Client) GetString(key string) (string, bool) {
	v, ok := mc.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Claim stores key only if it is absent or expired and reports whether it
// did. Concurrent claims for one key have exactly one winner.
func (mc *Client) Claim(key string, ttl time.Duration) bool {
	return mc.c.Add(key, struct{}{}, ttlOrDefault(ttl)) == nil
}

func (mc *Client) Delete(key string) {
	mc.c.Delete(key)
}

func (mc *Client) Flush() {
	mc.c.Flush()
}

func (mc *Client) Stats() int {
	return mc.c.ItemCount()
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return cache.DefaultExpiration
	}
	return ttl
}
