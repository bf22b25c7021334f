package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/health"
	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/notify"
)

// fakeRunner fails every command containing one of the fail keys.
type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	fail     map[string]string
}

func (r *fakeRunner) Execute(_ context.Context, command string) (dag.Outcome, error) {
	r.mu.Lock()
	r.commands = append(r.commands, command)
	r.mu.Unlock()
	for key, detail := range r.fail {
		if strings.Contains(command, key) {
			return dag.Failed(detail), nil
		}
	}
	return dag.Succeeded("OK"), nil
}

func (r *fakeRunner) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.commands {
		if strings.Contains(c, key) {
			n++
		}
	}
	return n
}

type inbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (b *inbox) Post(_ context.Context, msg notify.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *inbox) only(t *testing.T) (notify.Message, string) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) != 1 {
		t.Fatalf("got %d notifications, want exactly 1", len(b.msgs))
	}
	raw, err := json.Marshal(b.msgs[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b.msgs[0], string(raw)
}

// counts serves every health check; bronze returns bronzeRows.
type counts struct {
	queries    atomic.Int32
	bronzeRows int64
}

func (c *counts) QueryScalarCount(_ context.Context, query string) (int64, error) {
	c.queries.Add(1)
	switch {
	case strings.Contains(query, "LEFT JOIN"):
		return 0, nil
	case strings.Contains(query, "bronze."):
		return c.bronzeRows, nil
	default:
		return 120, nil
	}
}

type fixture struct {
	runner *fakeRunner
	store  *counts
	inbox  *inbox
	p      *Pipeline
}

func newFixture(t *testing.T, fail map[string]string) *fixture {
	t.Helper()
	f := &fixture{
		runner: &fakeRunner{fail: fail},
		store:  &counts{bronzeRows: 1500},
		inbox:  &inbox{},
	}
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	p, err := New(cfg, nil, Deps{
		Runner:   f.runner,
		Gate:     health.NewGate(f.store, health.DefaultChecks(), logger.Nop()),
		Notifier: notify.NewNotifier(f.inbox, notify.WithLogger(logger.Nop())),
		Logger:   logger.Nop(),
		Sleep:    func(context.Context, time.Duration) error { return nil },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.p = p
	return f
}

func assertStates(t *testing.T, run *dag.PipelineRun, want map[string]dag.TaskState) {
	t.Helper()
	for id, state := range want {
		a, ok := run.Attempt(id)
		if !ok {
			t.Errorf("%s: no attempt recorded", id)
			continue
		}
		if a.State != state {
			t.Errorf("%s: state %s, want %s (detail %q)", id, a.State, state, a.Detail)
		}
	}
}

func TestPipeline_AllTasksPass(t *testing.T) {
	f := newFixture(t, nil)

	run, err := f.p.Run(context.Background(), "manual")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status() != dag.RunSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED (failed task %q: %s)", run.Status(), run.FailedTask(), run.FailureDetail())
	}
	assertStates(t, run, map[string]dag.TaskState{
		TaskSourceFreshness: dag.StateSuccess,
		TaskBronze:          dag.StateSuccess,
		TaskSilver:          dag.StateSuccess,
		TaskGold:            dag.StateSuccess,
		TaskTests:           dag.StateSuccess,
		TaskDocs:            dag.StateSuccess,
	})
	if got := f.store.queries.Load(); got != 4 {
		t.Errorf("health queries = %d, want 4", got)
	}
	msg, raw := f.inbox.only(t)
	if msg.Header() != "✅ DBT Pipeline Success" {
		t.Errorf("header = %q", msg.Header())
	}
	if !strings.Contains(raw, run.ID) {
		t.Errorf("success message does not carry run id %s", run.ID)
	}
	if run.Trigger != "manual" || run.PipelineID != DefaultID {
		t.Errorf("run = %s/%s", run.PipelineID, run.Trigger)
	}
}

func TestPipeline_SilverFailureSkipsDownstream(t *testing.T) {
	f := newFixture(t, map[string]string{"tag:silver": "Database Error in model slvr_products"})

	run, err := f.p.Run(context.Background(), "scheduled")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status() != dag.RunFailed {
		t.Fatalf("status = %s, want FAILED", run.Status())
	}
	assertStates(t, run, map[string]dag.TaskState{
		TaskSourceFreshness: dag.StateSuccess,
		TaskBronze:          dag.StateSuccess,
		TaskSilver:          dag.StateFailure,
		TaskGold:            dag.StateSkipped,
		TaskTests:           dag.StateSkipped,
		TaskDocs:            dag.StateSuccess,
	})
	if got := f.runner.count("tag:silver"); got != 4 {
		t.Errorf("silver attempts = %d, want 4 (1 + 3 retries)", got)
	}
	if got := f.runner.count("tag:gold"); got != 0 {
		t.Errorf("gold ran %d times", got)
	}
	if got := f.runner.count("docs generate"); got != 1 {
		t.Errorf("docs ran %d times, want 1", got)
	}
	if run.FailedTask() != TaskSilver {
		t.Errorf("failed task = %q", run.FailedTask())
	}
	if got := f.store.queries.Load(); got != 0 {
		t.Errorf("gate ran %d queries after a task failure", got)
	}
	msg, raw := f.inbox.only(t)
	if msg.Header() != "❌ DBT Pipeline Failed" {
		t.Errorf("header = %q", msg.Header())
	}
	if !strings.Contains(raw, TaskSilver) || !strings.Contains(raw, "slvr_products") {
		t.Errorf("failure message lacks task or detail: %s", raw)
	}
}

func TestPipeline_FreshnessIsNotRetried(t *testing.T) {
	f := newFixture(t, map[string]string{"source freshness": "stale source"})

	run, err := f.p.Run(context.Background(), "manual")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.runner.count("source freshness"); got != 1 {
		t.Errorf("freshness attempts = %d, want 1", got)
	}
	if run.FailedTask() != TaskSourceFreshness {
		t.Errorf("failed task = %q", run.FailedTask())
	}
	assertStates(t, run, map[string]dag.TaskState{
		TaskBronze: dag.StateSkipped,
		TaskDocs:   dag.StateSuccess,
	})
}

func TestPipeline_HealthGateFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.bronzeRows = 0

	run, err := f.p.Run(context.Background(), "manual")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status() != dag.RunFailed || run.FailedTask() != dag.HealthCheckTask {
		t.Fatalf("status = %s, failed task = %q", run.Status(), run.FailedTask())
	}
	if !strings.Contains(run.FailureDetail(), "bronze is empty") {
		t.Errorf("detail = %q", run.FailureDetail())
	}
	if got := f.store.queries.Load(); got != 4 {
		t.Errorf("health queries = %d, every check must run", got)
	}
	msg, raw := f.inbox.only(t)
	if msg.Header() != "❌ DBT Pipeline Failed" || !strings.Contains(raw, dag.HealthCheckTask) {
		t.Errorf("message = %s", raw)
	}
}

func TestPipeline_CommandsCarryProfileFlags(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.p.Run(context.Background(), "manual"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "docker exec dataops-dbt dbt run --select tag:bronze --profiles-dir /usr/app/dbt --target dev"
	if f.runner.count(want) != 1 {
		t.Errorf("no command %q in %v", want, f.runner.commands)
	}
}

func TestPipeline_PlanLevels(t *testing.T) {
	f := newFixture(t, nil)
	plan := f.p.Plan()
	if len(plan.Levels) != 6 {
		t.Fatalf("levels = %v", plan.Levels)
	}
	order := []string{TaskSourceFreshness, TaskBronze, TaskSilver, TaskGold, TaskTests, TaskDocs}
	for i, id := range order {
		if plan.Level(id) != i {
			t.Errorf("%s at level %d, want %d", id, plan.Level(id), i)
		}
	}
}

func TestNew_RequiresRunner(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	_, err := New(cfg, nil, Deps{Logger: logger.Nop()})
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestNew_DefinitionFileWithCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyclic.yaml")
	yaml := `id: cyclic
tasks:
  - id: a
    command: dbt run --select a
    depends_on: [b]
  - id: b
    command: dbt run --select b
    depends_on: [a]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := Config{Definition: path}
	cfg.ApplyDefaults()
	_, err := New(cfg, nil, Deps{Runner: &fakeRunner{}, Logger: logger.Nop()})
	if !errors.IsCode(err, errors.ErrCodeCyclicDependency) {
		t.Fatalf("err = %v, want CYCLIC_DEPENDENCY", err)
	}
}

func TestLoadDefinition_FillsDefaultsFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.yaml")
	yaml := `id: small
defaults:
  retries: 1
tasks:
  - id: only
    command: dbt build
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := Config{Definition: path}
	cfg.ApplyDefaults()
	def, err := LoadDefinition(cfg)
	if err != nil {
		t.Fatalf("LoadDefinition: %v", err)
	}
	if def.Defaults.Retries != 1 {
		t.Errorf("retries = %d, want the file's 1", def.Defaults.Retries)
	}
	if def.Defaults.RetryDelay != 5*time.Minute || def.Defaults.Timeout != 2*time.Hour {
		t.Errorf("defaults = %+v", def.Defaults)
	}
	if len(def.Tags) == 0 {
		t.Error("tags not inherited")
	}
}
