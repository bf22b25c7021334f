package main

import (
	"fmt"

	"github.com/tienminhktvn/dataops-project/config"
	"github.com/tienminhktvn/dataops-project/database"
	"github.com/tienminhktvn/dataops-project/health"
	"github.com/tienminhktvn/dataops-project/notify"
	"github.com/tienminhktvn/dataops-project/observability"
	"github.com/tienminhktvn/dataops-project/pipeline"
	"github.com/tienminhktvn/dataops-project/process"
	"github.com/tienminhktvn/dataops-project/scheduler"
	"github.com/tienminhktvn/dataops-project/server"
	"github.com/tienminhktvn/dataops-project/sse"
	"github.com/tienminhktvn/dataops-project/util"
	"github.com/tienminhktvn/dataops-project/version"
	"github.com/tienminhktvn/dataops-project/workload"
	"github.com/tienminhktvn/dataops-project/workload/docker"
)

// Config is the full service configuration loaded from config.yml, .env
// and DATAOPS_* environment variables.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Pipeline      pipeline.Config      `yaml:"pipeline" mapstructure:"pipeline"`
	Shell         process.ShellConfig  `yaml:"shell" mapstructure:"shell"`
	Workload      workload.Config      `yaml:"workload" mapstructure:"workload"`
	Docker        docker.Config        `yaml:"docker" mapstructure:"docker"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Health        health.Config        `yaml:"health" mapstructure:"health"`
	Notify        notify.Config        `yaml:"notify" mapstructure:"notify"`
	Scheduler     scheduler.Config     `yaml:"scheduler" mapstructure:"scheduler"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Events        sse.Config           `yaml:"events" mapstructure:"events"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.Pipeline.ApplyDefaults()
	c.Shell.ApplyDefaults()

	// The engine API runner is the workload component; the container it
	// execs into is the pipeline's unless set explicitly.
	c.Workload.Enabled = c.Pipeline.Runner == pipeline.RunnerDocker
	c.Workload.Container = util.Coalesce(c.Workload.Container, c.Pipeline.Container)
	c.Workload.ApplyDefaults()
	c.Docker.ApplyDefaults()

	c.Database.ApplyDefaults()
	c.Health.ApplyDefaults()
	c.Notify.ApplyDefaults()
	c.Scheduler.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Events.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name     string
		validate func() error
	}{
		{"pipeline", c.Pipeline.Validate},
		{"workload", c.Workload.Validate},
		{"database", c.Database.Validate},
		{"health", c.Health.Validate},
		{"notify", c.Notify.Validate},
		{"scheduler", c.Scheduler.Validate},
		{"server", c.Server.Validate},
		{"events", c.Events.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if c.Workload.Enabled {
		if err := c.Docker.Validate(); err != nil {
			return fmt.Errorf("docker: %w", err)
		}
	}
	if _, err := scheduler.ParseSchedule(c.Pipeline.Schedule); err != nil {
		return fmt.Errorf("pipeline.schedule: %w", err)
	}
	return nil
}

func loadConfig(path, envFile string) (*Config, error) {
	cfg := &Config{}
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
