package health

import (
	"fmt"

	"github.com/tienminhktvn/dataops-project/validation"
)

// Config is the health section of the service config.
type Config struct {
	// Disabled turns the gate off; a run then succeeds on task results alone.
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
	// Checks replaces DefaultChecks when non-empty.
	Checks []Check `yaml:"checks" mapstructure:"checks" validate:"dive"`
}

func (c *Config) ApplyDefaults() {
	if len(c.Checks) == 0 {
		c.Checks = DefaultChecks()
	}
	for i := range c.Checks {
		if c.Checks[i].Kind == "" {
			c.Checks[i].Kind = RowCount
		}
	}
}

func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Checks))
	for _, chk := range c.Checks {
		if _, ok := seen[chk.Name]; ok {
			return fmt.Errorf("health.checks: duplicate check %q", chk.Name)
		}
		seen[chk.Name] = struct{}{}
	}
	return validation.Validate(c)
}

// NewGateFromConfig returns nil when the gate is disabled.
func NewGateFromConfig(cfg Config, store DataStore) *Gate {
	if cfg.Disabled {
		return nil
	}
	cfg.ApplyDefaults()
	return NewGate(store, cfg.Checks, nil)
}
