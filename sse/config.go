package sse

import (
	"time"

	"github.com/tienminhktvn/dataops-project/validation"
)

// Config is the events section of the service config.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// KeepAlive is the interval of comment frames that hold idle
	// connections open through proxies.
	KeepAlive time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`
	// ClientBuffer is the number of events queued per client before new
	// ones are dropped for it.
	ClientBuffer int `yaml:"client_buffer" mapstructure:"client_buffer" validate:"gte=0"`
	// MaxClients caps concurrent subscribers. Zero means no limit.
	MaxClients int `yaml:"max_clients" mapstructure:"max_clients" validate:"gte=0"`
}

func (c *Config) ApplyDefaults() {
	if c.KeepAlive <= 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.ClientBuffer == 0 {
		c.ClientBuffer = 256
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.Validate(c)
}
