package redis

import (
	"fmt"
	"time"
)

// Config holds Redis connection settings.
type Config struct {
	// Enabled turns the cache on. When false the service runs without it.
	Enabled bool `mapstructure:"enabled"`
	// Addr is host:port.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// Durations use time.ParseDuration syntax ("5s", "500ms").
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	// ResultTTL is how long cached detection results live. "0" keeps them forever.
	ResultTTL string `mapstructure:"result_ttl"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
	if c.ResultTTL == "" {
		c.ResultTTL = "24h"
	}
}

// Validate checks required fields and duration syntax. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("redis.pool_size must be > 0")
	}
	for name, v := range map[string]string{
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
		"result_ttl":    c.ResultTTL,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid redis.%s %q: %w", name, v, err)
		}
	}
	return nil
}

// TTL returns the parsed ResultTTL, zero when unset or malformed.
func (c *Config) TTL() time.Duration {
	d, _ := time.ParseDuration(c.ResultTTL)
	return d
}
