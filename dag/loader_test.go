package dag

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/tienminhktvn/dataops-project/errors"
)

const definitionYAML = `
id: dbt_dataops_pipeline
description: nightly dbt run
tags: [dbt, dataops]
defaults:
  retries: 3
  retry_delay: 5m
  multiplier: 2
  max_retry_delay: 30m
  timeout: 2h
tasks:
  - id: check_source_freshness
    command: dbt source freshness
    retries: 0
  - id: run_bronze_layer
    command: dbt run --select bronze
    depends_on: [check_source_freshness]
  - id: generate_dbt_documentation
    command: dbt docs generate
    depends_on: [run_bronze_layer]
    trigger_rule: all_done
    timeout: 10m
`

func writeDefinition(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func commandRecorder(commands map[string]string) TaskFactory {
	return func(def TaskDef) (TaskFunc, error) {
		commands[def.ID] = def.Command
		return noop, nil
	}
}

func TestLoadDefinition_FromFile(t *testing.T) {
	path := writeDefinition(t, t.TempDir(), "pipeline.yaml", definitionYAML)

	d, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "dbt_dataops_pipeline" || len(d.Tasks) != 3 {
		t.Fatalf("unexpected definition %+v", d)
	}
	if d.Defaults.RetryDelay != 5*time.Minute || d.Defaults.Timeout != 2*time.Hour {
		t.Errorf("durations not decoded: %+v", d.Defaults)
	}
	if !reflect.DeepEqual(d.Tags, []string{"dbt", "dataops"}) {
		t.Errorf("unexpected tags %v", d.Tags)
	}
}

func TestDefinition_Build(t *testing.T) {
	d, err := ParseDefinition([]byte(definitionYAML))
	if err != nil {
		t.Fatal(err)
	}
	commands := make(map[string]string)
	reg, err := d.Build(commandRecorder(commands))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reg.Finalized() {
		t.Error("expected a finalized registry")
	}
	if commands["run_bronze_layer"] != "dbt run --select bronze" {
		t.Errorf("factory saw %v", commands)
	}

	fresh, _ := reg.Get("check_source_freshness")
	if fresh.Retry.MaxRetries != 0 {
		t.Errorf("explicit zero retries should override the default, got %d", fresh.Retry.MaxRetries)
	}
	bronze, _ := reg.Get("run_bronze_layer")
	if bronze.Retry.MaxRetries != 3 || bronze.Retry.BaseDelay != 5*time.Minute || bronze.Timeout != 2*time.Hour {
		t.Errorf("defaults not applied: %+v", bronze.Retry)
	}
	docs, _ := reg.Get("generate_dbt_documentation")
	if docs.TriggerRule != AllDone || docs.Timeout != 10*time.Minute {
		t.Errorf("overrides not applied: rule=%s timeout=%s", docs.TriggerRule, docs.Timeout)
	}

	plan, err := BuildPlan(reg)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Levels) != 3 {
		t.Errorf("expected three levels, got %v", plan.Levels)
	}
}

func TestDefinition_BuildRejectsCycle(t *testing.T) {
	d, err := ParseDefinition([]byte(`
id: cyclic
tasks:
  - id: a
    depends_on: [b]
  - id: b
    depends_on: [a]
`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Build(func(TaskDef) (TaskFunc, error) { return noop, nil })
	if !errors.IsCode(err, errors.ErrCodeCyclicDependency) {
		t.Fatalf("expected CYCLIC_DEPENDENCY, got %v", err)
	}
}

func TestDefinition_BuildRejectsBadRule(t *testing.T) {
	d, _ := ParseDefinition([]byte("id: p\ntasks:\n  - id: a\n    trigger_rule: one_failed\n"))
	if _, err := d.Build(func(TaskDef) (TaskFunc, error) { return noop, nil }); err == nil {
		t.Fatal("expected unknown trigger rule to fail")
	}
}

func TestParseDefinition_Invalid(t *testing.T) {
	tests := map[string]string{
		"no id":    "tasks:\n  - id: a\n",
		"no tasks": "id: empty\n",
		"bad yaml": "id: [unclosed\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDefinition([]byte(content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFileDefinitionLoader(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "nightly.yml", definitionYAML)

	loader := NewFileDefinitionLoader(t.TempDir(), dir)
	d, err := loader.Load("nightly")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "dbt_dataops_pipeline" {
		t.Errorf("unexpected id %q", d.ID)
	}

	if _, err := loader.Load("missing"); !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDefinition_TasksRun(t *testing.T) {
	d, _ := ParseDefinition([]byte(definitionYAML))
	reg, err := d.Build(func(TaskDef) (TaskFunc, error) { return noop, nil })
	if err != nil {
		t.Fatal(err)
	}
	plan, _ := BuildPlan(reg)
	e, _ := newTestEngine()
	run, err := e.Execute(context.Background(), plan, reg, NewRun(d.ID, time.Now()))
	if err != nil || run.Status() != RunSucceeded {
		t.Fatalf("expected SUCCEEDED, got %v %v", run, err)
	}
}
