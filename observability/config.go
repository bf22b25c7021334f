package observability

import (
	"time"

	"github.com/tienminhktvn/dataops-project/validation"
)

// Config is the observability section of the service config. Both signals
// are exported over OTLP/HTTP to the same collector when Enabled; the
// Prometheus endpoint is switched separately.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the collector host:port, e.g. "otel-collector:4318".
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the trace sampling ratio between 0 and 1.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	Prometheus PrometheusConfig `yaml:"prometheus" mapstructure:"prometheus"`
}

func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	c.Prometheus.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.Prometheus.Validate(); err != nil {
		return err
	}
	if !c.Enabled {
		return nil
	}
	v := validation.New()
	v.Required("observability.endpoint", c.Endpoint)
	v.Positive("observability.interval", c.Interval)
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}
