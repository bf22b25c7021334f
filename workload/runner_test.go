package workload

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/logger"
)

type fakeExecutor struct {
	result  *ExecResult
	err     error
	status  *ContainerStatus
	pingErr error

	gotContainer string
	gotCmd       []string
	gotOpts      ExecOptions
}

func (f *fakeExecutor) Exec(ctx context.Context, c string, cmd []string, opts ExecOptions) (*ExecResult, error) {
	f.gotContainer, f.gotCmd, f.gotOpts = c, cmd, opts
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.result, nil
}

func (f *fakeExecutor) Status(context.Context, string) (*ContainerStatus, error) {
	return f.status, nil
}

func (f *fakeExecutor) Ping(context.Context) error { return f.pingErr }
func (f *fakeExecutor) Close() error               { return nil }

func TestContainerRunner_Success(t *testing.T) {
	fake := &fakeExecutor{result: &ExecResult{Stdout: "Done. PASS=4\n"}}
	r := NewContainerRunner(fake, Config{WorkingDir: "/usr/app/dbt", Env: []string{"DBT_TARGET=dev"}}, logger.Nop())

	out, err := r.Execute(context.Background(), "dbt run --select bronze")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != dag.OutcomeSuccess || out.Detail != "Done. PASS=4" {
		t.Errorf("outcome = %+v", out)
	}
	if fake.gotContainer != "dataops-dbt" {
		t.Errorf("container = %q, want default dataops-dbt", fake.gotContainer)
	}
	if strings.Join(fake.gotCmd, " ") != "sh -c dbt run --select bronze" {
		t.Errorf("cmd = %q", fake.gotCmd)
	}
	if fake.gotOpts.WorkingDir != "/usr/app/dbt" {
		t.Errorf("opts = %+v", fake.gotOpts)
	}
}

func TestContainerRunner_NonZeroExit(t *testing.T) {
	fake := &fakeExecutor{result: &ExecResult{ExitCode: 2, Stderr: "Database Error in model slvr_products"}}
	out, err := NewContainerRunner(fake, Config{}, logger.Nop()).Execute(context.Background(), "dbt run --select silver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != dag.OutcomeFailure || !strings.Contains(out.Detail, "Database Error") {
		t.Errorf("outcome = %+v", out)
	}

	fake.result = &ExecResult{ExitCode: 137}
	out, _ = NewContainerRunner(fake, Config{}, logger.Nop()).Execute(context.Background(), "dbt run")
	if out.Detail != "command exited with code 137" {
		t.Errorf("detail = %q", out.Detail)
	}
}

func TestContainerRunner_ErrorClassification(t *testing.T) {
	fake := &fakeExecutor{err: stderrors.New("exec attach: connection refused")}
	_, err := NewContainerRunner(fake, Config{}, logger.Nop()).Execute(context.Background(), "dbt run")
	if !errors.IsCode(err, errors.ErrCodeProcess) {
		t.Errorf("expected PROCESS error, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	fake.err = nil
	_, err = NewContainerRunner(fake, Config{}, logger.Nop()).Execute(ctx, "dbt run")
	if !errors.IsCode(err, errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestComponent_Health(t *testing.T) {
	ctx := context.Background()

	disabled := NewComponent(Config{}, nil, logger.Nop())
	if err := disabled.Start(ctx); err != nil {
		t.Fatalf("start disabled: %v", err)
	}
	if h := disabled.Health(ctx); h.Status != component.StatusHealthy || h.Message != "disabled" {
		t.Errorf("disabled health = %+v", h)
	}
	if disabled.Runner() != nil {
		t.Error("disabled component should have no runner")
	}

	fake := &fakeExecutor{status: &ContainerStatus{Status: StatusStopped}}
	RegisterFactory("fake", func(any, *logger.Logger) (Executor, error) { return fake, nil })
	c := NewComponent(Config{Enabled: true, Provider: "fake"}, nil, logger.Nop())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("stopped container health = %+v", h)
	}
	fake.status = &ContainerStatus{Status: StatusRunning, Running: true, Healthy: true}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("running container health = %+v", h)
	}
	fake.pingErr = stderrors.New("daemon down")
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("daemon down health = %+v", h)
	}
	if c.Runner() == nil {
		t.Error("expected runner after start")
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
