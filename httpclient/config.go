package httpclient

import (
	"fmt"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration `mapstructure:"timeout"`
	// Headers are sent with every request.
	Headers map[string]string `mapstructure:"headers"`
	// Auth applies to every request unless the request overrides it.
	Auth *AuthConfig `mapstructure:"-"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	return nil
}
