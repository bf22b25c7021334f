package database

import (
	"fmt"
	"time"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config holds database connection configuration.
type Config struct {
	// Enabled controls whether the database component is active. When
	// disabled the health gate has no data store and every probe fails.
	Enabled bool `mapstructure:"enabled"`

	// Driver selects the gorm dialector: postgres, mysql or sqlite.
	Driver string `mapstructure:"driver"`

	// DSN is the driver-specific connection string.
	DSN string `mapstructure:"dsn"`

	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// ConnMaxLifetime is the maximum time a connection may be reused (e.g. "1h").
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`

	// ConnMaxIdleTime is the maximum time a connection may sit idle (e.g. "5m").
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `mapstructure:"max_retries"`

	// QueryTimeout bounds a single health probe (e.g. "30s").
	QueryTimeout string `mapstructure:"query_timeout"`

	// AutoMigrate creates the run history table on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`

	// SlowQueryThreshold is the duration above which queries are logged as slow.
	SlowQueryThreshold string `mapstructure:"slow_query_threshold"`

	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 5
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.ConnMaxIdleTime == "" {
		c.ConnMaxIdleTime = "5m"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.QueryTimeout == "" {
		c.QueryTimeout = "30s"
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("database driver must be one of postgres, mysql, sqlite (got: %s)", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max_open_conns must be > 0")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	for name, value := range map[string]string{
		"conn_max_lifetime":    c.ConnMaxLifetime,
		"conn_max_idle_time":   c.ConnMaxIdleTime,
		"query_timeout":        c.QueryTimeout,
		"slow_query_threshold": c.SlowQueryThreshold,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be > 0")
	}
	return nil
}

func (c *Config) queryTimeout() time.Duration {
	d, err := time.ParseDuration(c.QueryTimeout)
	if err != nil {
		return 0
	}
	return d
}
