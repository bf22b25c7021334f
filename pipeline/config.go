package pipeline

import (
	"fmt"
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/util"
	"github.com/tienminhktvn/dataops-project/validation"
)

// Runner modes.
const (
	// RunnerShell runs dbt on the local host through sh -c.
	RunnerShell = "shell"
	// RunnerDockerCLI runs `docker exec <container> dbt ...` through sh -c.
	RunnerDockerCLI = "docker-cli"
	// RunnerDocker runs dbt in the container through the Docker Engine API.
	RunnerDocker = "docker"
)

// DefaultID is the id of the built-in pipeline.
const DefaultID = "dbt_dataops_pipeline"

// Config is the pipeline section of the service config.
type Config struct {
	ID          string   `yaml:"id" mapstructure:"id" validate:"required"`
	Description string   `yaml:"description" mapstructure:"description"`
	Tags        []string `yaml:"tags" mapstructure:"tags"`

	Container   string `yaml:"container" mapstructure:"container"`
	ProfilesDir string `yaml:"profiles_dir" mapstructure:"profiles_dir" validate:"required"`
	// ProjectDir is passed as --project-dir when set.
	ProjectDir string `yaml:"project_dir" mapstructure:"project_dir"`
	Target     string `yaml:"target" mapstructure:"target" validate:"required"`

	// MaxActiveRuns is fixed at one; the field exists so configs can state it.
	MaxActiveRuns int    `yaml:"max_active_runs" mapstructure:"max_active_runs" validate:"eq=1"`
	Schedule      string `yaml:"schedule" mapstructure:"schedule"`
	MaxParallel   int    `yaml:"max_parallel" mapstructure:"max_parallel" validate:"gte=0"`

	// DefaultRetries is a pointer so an explicit zero survives ApplyDefaults.
	DefaultRetries    *int          `yaml:"default_retries" mapstructure:"default_retries" validate:"omitempty,gte=0"`
	DefaultRetryDelay time.Duration `yaml:"default_retry_delay" mapstructure:"default_retry_delay"`
	RetryMultiplier   float64       `yaml:"retry_multiplier" mapstructure:"retry_multiplier" validate:"gte=1"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay" mapstructure:"max_retry_delay"`
	DefaultTimeout    time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`

	Runner string `yaml:"runner" mapstructure:"runner" validate:"oneof=shell docker-cli docker"`
	// Definition is an optional YAML pipeline file replacing the built-in tasks.
	Definition string `yaml:"definition" mapstructure:"definition"`
}

func (c *Config) ApplyDefaults() {
	if c.ID == "" {
		c.ID = DefaultID
	}
	if c.Description == "" {
		c.Description = "Complete DataOps pipeline orchestrating DBT transformations."
	}
	if len(c.Tags) == 0 {
		c.Tags = []string{"dbt", "dataops", "production", "daily"}
	}
	if c.Container == "" {
		c.Container = "dataops-dbt"
	}
	if c.ProfilesDir == "" {
		c.ProfilesDir = "/usr/app/dbt"
	}
	if c.Target == "" {
		c.Target = "dev"
	}
	if c.MaxActiveRuns == 0 {
		c.MaxActiveRuns = 1
	}
	if c.Schedule == "" {
		c.Schedule = "0 1 * * *"
	}
	if c.DefaultRetries == nil {
		c.DefaultRetries = util.Ptr(3)
	}
	if c.DefaultRetryDelay <= 0 {
		c.DefaultRetryDelay = 5 * time.Minute
	}
	if c.RetryMultiplier == 0 {
		c.RetryMultiplier = 2
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 30 * time.Minute
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 2 * time.Hour
	}
	if c.Runner == "" {
		c.Runner = RunnerDockerCLI
	}
}

func (c *Config) Validate() error {
	v := validation.New()
	v.Positive("pipeline.default_retry_delay", c.DefaultRetryDelay)
	v.Positive("pipeline.default_timeout", c.DefaultTimeout)
	v.Custom(c.MaxRetryDelay >= c.DefaultRetryDelay, "pipeline.max_retry_delay",
		fmt.Sprintf("must be at least default_retry_delay (%s)", c.DefaultRetryDelay))
	v.Custom(c.Runner != RunnerDockerCLI || c.Container != "", "pipeline.container",
		"is required for the docker-cli runner")
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}

// TaskDefaults returns the per-task defaults a definition inherits.
func (c Config) TaskDefaults() dag.TaskDefaults {
	return dag.TaskDefaults{
		Retries:       c.retries(),
		RetryDelay:    c.DefaultRetryDelay,
		Multiplier:    c.RetryMultiplier,
		MaxRetryDelay: c.MaxRetryDelay,
		Timeout:       c.DefaultTimeout,
	}
}

func (c Config) retries() int {
	return util.Deref(c.DefaultRetries)
}
