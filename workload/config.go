package workload

import (
	"fmt"

	"github.com/tienminhktvn/dataops-project/validation"
)

// Config holds the runtime-agnostic settings of the container runner.
type Config struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Provider string `yaml:"provider" mapstructure:"provider"`
	// Container is the name or id of the container the commands run in.
	Container  string   `yaml:"container" mapstructure:"container"`
	WorkingDir string   `yaml:"working_dir" mapstructure:"working_dir"`
	User       string   `yaml:"user" mapstructure:"user"`
	Env        []string `yaml:"env" mapstructure:"env"`
	// Shell is invoked as "<shell> -c <command>" inside the container.
	Shell string `yaml:"shell" mapstructure:"shell"`
	// MaxOutput caps the output kept as the outcome detail.
	MaxOutput int `yaml:"max_output" mapstructure:"max_output" validate:"gte=0"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderDocker
	}
	if c.Container == "" {
		c.Container = "dataops-dbt"
	}
	if c.Shell == "" {
		c.Shell = "sh"
	}
	if c.MaxOutput <= 0 {
		c.MaxOutput = 4096
	}
}

func (c *Config) Validate() error {
	if c.Enabled && c.Container == "" {
		return fmt.Errorf("workload: container is required")
	}
	return validation.Validate(c)
}
