package pipeline

import (
	"github.com/tienminhktvn/dataops-project/dag"
)

// Task ids of the built-in pipeline.
const (
	TaskSourceFreshness = "check_source_freshness"
	TaskBronze          = "run_bronze_layer"
	TaskSilver          = "run_silver_layer"
	TaskGold            = "run_gold_layer"
	TaskTests           = "run_data_quality_tests"
	TaskDocs            = "generate_dbt_documentation"
)

// DefaultDefinition returns the nightly dbt pipeline: freshness, the three
// model layers in sequence, data tests, and documentation that runs whatever
// the tests did.
func DefaultDefinition(cfg Config) *dag.Definition {
	noRetry := 0
	return &dag.Definition{
		ID:          cfg.ID,
		Description: cfg.Description,
		Tags:        append([]string(nil), cfg.Tags...),
		Defaults:    cfg.TaskDefaults(),
		Tasks: []dag.TaskDef{
			{
				ID:          TaskSourceFreshness,
				Command:     "dbt source freshness",
				Retries:     &noRetry,
				Description: "Check source data freshness",
			},
			{
				ID:          TaskBronze,
				Command:     "dbt run --select tag:bronze",
				DependsOn:   []string{TaskSourceFreshness},
				Description: "dbt_model_execution: bronze models",
			},
			{
				ID:          TaskSilver,
				Command:     "dbt run --select tag:silver",
				DependsOn:   []string{TaskBronze},
				Description: "dbt_model_execution: silver models",
			},
			{
				ID:          TaskGold,
				Command:     "dbt run --select tag:gold",
				DependsOn:   []string{TaskSilver},
				Description: "dbt_model_execution: gold models",
			},
			{
				ID:          TaskTests,
				Command:     "dbt test",
				DependsOn:   []string{TaskGold},
				TriggerRule: string(dag.AllSuccess),
				Description: "Run data quality tests",
			},
			{
				ID:          TaskDocs,
				Command:     "dbt docs generate",
				DependsOn:   []string{TaskTests},
				TriggerRule: string(dag.AllDone),
				Description: "Generate dbt documentation",
			},
		},
	}
}

// LoadDefinition returns the definition named by cfg.Definition, or the
// built-in one. Zero defaults in a loaded file are filled from cfg.
func LoadDefinition(cfg Config) (*dag.Definition, error) {
	if cfg.Definition == "" {
		return DefaultDefinition(cfg), nil
	}
	def, err := dag.LoadDefinition(cfg.Definition)
	if err != nil {
		return nil, err
	}
	mergeDefaults(&def.Defaults, cfg.TaskDefaults())
	if def.Description == "" {
		def.Description = cfg.Description
	}
	if len(def.Tags) == 0 {
		def.Tags = append([]string(nil), cfg.Tags...)
	}
	return def, nil
}

// mergeDefaults fills the zero fields of d from base. Retries is not merged:
// a file that leaves it out means no retries.
func mergeDefaults(d *dag.TaskDefaults, base dag.TaskDefaults) {
	if d.RetryDelay == 0 {
		d.RetryDelay = base.RetryDelay
	}
	if d.Multiplier == 0 {
		d.Multiplier = base.Multiplier
	}
	if d.MaxRetryDelay == 0 {
		d.MaxRetryDelay = base.MaxRetryDelay
	}
	if d.Timeout == 0 {
		d.Timeout = base.Timeout
	}
}
