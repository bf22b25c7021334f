package server

import (
	"net"
	"strconv"
	"time"

	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/security"
	"github.com/tienminhktvn/dataops-project/server/middleware"
	"github.com/tienminhktvn/dataops-project/validation"
)

// Config holds HTTP server configuration. Timeouts are in seconds.
type Config struct {
	Enabled         bool                  `yaml:"enabled" mapstructure:"enabled"`
	Host            string                `yaml:"host" mapstructure:"host"`
	Port            int                   `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     int                   `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    int                   `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     int                   `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout int                   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gte=0"`
	MaxBodySize     string                `yaml:"max_body_size" mapstructure:"max_body_size"`
	CORS            middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`

	// APIToken guards the mutating run endpoints. Empty leaves them open.
	APIToken string `yaml:"api_token" mapstructure:"api_token"`
	// TriggerRate is manual triggers per second per client.
	TriggerRate  float64 `yaml:"trigger_rate" mapstructure:"trigger_rate" validate:"gte=0"`
	TriggerBurst int     `yaml:"trigger_burst" mapstructure:"trigger_burst" validate:"gte=0"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	}
	if c.TriggerRate == 0 {
		c.TriggerRate = 0.1
	}
	if c.TriggerBurst == 0 {
		c.TriggerBurst = 3
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := c.TLS.Validate(); err != nil {
		return errors.InvalidInput("server.tls", err.Error()).WithCause(err)
	}
	return validation.Validate(c)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
