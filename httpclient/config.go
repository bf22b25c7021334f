package httpclient

import (
	"fmt"
	"time"

	"github.com/tienminhktvn/dataops-project/resilience"
)

const defaultTimeout = 10 * time.Second

// Config configures the HTTP client.
type Config struct {
	// Name identifies the client in logs and the component registry.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is prepended to request paths that are not absolute URLs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds a single request including the body read. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Auth is applied to every request unless the request overrides it.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry, CircuitBreaker and RateLimiter are disabled when nil.
	Retry          *resilience.RetryConfig          `yaml:"-" mapstructure:"-"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" {
		c.Name = "http"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRetryConfig retries only errors classified as retryable.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultCircuitBreakerConfig returns the resilience defaults under name.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}

// DefaultRateLimiterConfig returns the resilience defaults under name.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}
