package dag

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/tienminhktvn/dataops-project/errors"
)

// Definition is the YAML form of a pipeline.
//
//	id: dbt_dataops_pipeline
//	defaults:
//	  retries: 3
//	  retry_delay: 5m
//	tasks:
//	  - id: run_bronze_layer
//	    command: dbt run --select bronze
//	    depends_on: [check_source_freshness]
type Definition struct {
	ID          string       `yaml:"id"`
	Description string       `yaml:"description"`
	Tags        []string     `yaml:"tags"`
	Defaults    TaskDefaults `yaml:"defaults"`
	Tasks       []TaskDef    `yaml:"tasks"`
}

// TaskDefaults apply to every task that does not override them.
type TaskDefaults struct {
	Retries       int           `yaml:"retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	Multiplier    float64       `yaml:"multiplier"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay"`
	Timeout       time.Duration `yaml:"timeout"`
}

// TaskDef is one task entry. Retries and Timeout are pointers so an explicit
// zero can override a non-zero default.
type TaskDef struct {
	ID          string         `yaml:"id"`
	Command     string         `yaml:"command"`
	DependsOn   []string       `yaml:"depends_on"`
	TriggerRule string         `yaml:"trigger_rule"`
	Retries     *int           `yaml:"retries"`
	Timeout     *time.Duration `yaml:"timeout"`
	Description string         `yaml:"description"`
}

// TaskFactory turns a task entry into its body, typically by binding the
// command to a runner.
type TaskFactory func(def TaskDef) (TaskFunc, error)

// ParseDefinition decodes a YAML pipeline definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.InvalidInput("definition", err.Error()).WithCause(err)
	}
	if d.ID == "" {
		return nil, errors.InvalidInput("id", "pipeline definition has no id")
	}
	if len(d.Tasks) == 0 {
		return nil, errors.InvalidInput("tasks", "pipeline "+d.ID+" defines no tasks")
	}
	return &d, nil
}

// LoadDefinition reads and decodes the definition at path.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dag: reading %s: %w", path, err)
	}
	d, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("dag: parsing %s: %w", path, err)
	}
	return d, nil
}

// DefinitionLoader loads definitions by pipeline name.
type DefinitionLoader interface {
	Load(name string) (*Definition, error)
}

// FileDefinitionLoader looks for {name}.yaml or {name}.yml in its
// directories, first match wins.
type FileDefinitionLoader struct {
	dirs []string
}

// NewFileDefinitionLoader creates a loader over dirs.
func NewFileDefinitionLoader(dirs ...string) *FileDefinitionLoader {
	return &FileDefinitionLoader{dirs: dirs}
}

func (l *FileDefinitionLoader) Load(name string) (*Definition, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			return LoadDefinition(path)
		}
	}
	return nil, errors.NotFound("pipeline definition", name)
}

// Spec converts def into a TaskSpec using the definition defaults.
func (d *Definition) Spec(def TaskDef, run TaskFunc) (TaskSpec, error) {
	rule, err := ParseTriggerRule(def.TriggerRule)
	if err != nil {
		return TaskSpec{}, err
	}
	retries := d.Defaults.Retries
	if def.Retries != nil {
		retries = *def.Retries
	}
	timeout := d.Defaults.Timeout
	if def.Timeout != nil {
		timeout = *def.Timeout
	}
	return TaskSpec{
		ID:          def.ID,
		DependsOn:   def.DependsOn,
		TriggerRule: rule,
		Retry: RetryPolicy{
			MaxRetries: retries,
			BaseDelay:  d.Defaults.RetryDelay,
			Multiplier: d.Defaults.Multiplier,
			MaxDelay:   d.Defaults.MaxRetryDelay,
		},
		Timeout:     timeout,
		Run:         run,
		Description: def.Description,
	}, nil
}

// Build registers every task of the definition and finalizes the registry.
func (d *Definition) Build(factory TaskFactory) (*Registry, error) {
	if factory == nil {
		return nil, errors.InvalidInput("factory", "task factory is required")
	}
	reg := NewRegistry()
	for _, def := range d.Tasks {
		run, err := factory(def)
		if err != nil {
			return nil, fmt.Errorf("dag: task %s: %w", def.ID, err)
		}
		spec, err := d.Spec(def, run)
		if err != nil {
			return nil, fmt.Errorf("dag: task %s: %w", def.ID, err)
		}
		if err := reg.Register(spec); err != nil {
			return nil, err
		}
	}
	if err := reg.Finalize(); err != nil {
		return nil, err
	}
	return reg, nil
}
