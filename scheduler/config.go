package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/validation"
)

// Config is the scheduler section of the service config. The cron
// expression itself lives on the pipeline.
type Config struct {
	// Disabled leaves only manual triggers.
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
	// Timezone is an IANA location for the cron schedule; empty means UTC.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
	// HistorySize is the number of runs kept in memory.
	HistorySize int `yaml:"history_size" mapstructure:"history_size" validate:"gte=0"`
	// StoreTimeout bounds each write to the run store.
	StoreTimeout time.Duration `yaml:"store_timeout" mapstructure:"store_timeout"`
	// DrainTimeout bounds how long Stop waits for an active run after
	// cancelling it.
	DrainTimeout time.Duration `yaml:"drain_timeout" mapstructure:"drain_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.HistorySize == 0 {
		c.HistorySize = 50
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	if _, err := c.location(); err != nil {
		return errors.InvalidInput("scheduler.timezone", err.Error())
	}
	return validation.Validate(c)
}

func (c Config) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseSchedule checks a standard five-field cron expression, the same
// syntax the scheduler accepts ("0 1 * * *", "@daily").
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, errors.InvalidInput("pipeline.schedule", err.Error()).WithCause(err)
	}
	return s, nil
}
