package workload

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/process"
)

// ContainerRunner runs pipeline commands inside the configured container.
type ContainerRunner struct {
	exec Executor
	cfg  Config
	log  *logger.Logger
}

// NewContainerRunner runs commands through exec; log may be nil.
func NewContainerRunner(exec Executor, cfg Config, log *logger.Logger) *ContainerRunner {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Get("workload")
	}
	return &ContainerRunner{exec: exec, cfg: cfg, log: log.WithComponent("container-runner")}
}

func (r *ContainerRunner) Name() string { return r.cfg.Provider }

// Execute runs command with "<shell> -c" in the container. A non-zero exit
// is a FAILURE outcome with the output tail; a context deadline is a Timeout
// error; a runtime error is a Process error.
func (r *ContainerRunner) Execute(ctx context.Context, command string) (dag.Outcome, error) {
	res, err := r.exec.Exec(ctx, r.cfg.Container, []string{r.cfg.Shell, "-c", command}, ExecOptions{
		WorkingDir: r.cfg.WorkingDir,
		User:       r.cfg.User,
		Env:        r.cfg.Env,
	})
	if err != nil {
		switch {
		case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
			return dag.Outcome{}, errors.Timeout(command).WithCause(err)
		case ctx.Err() != nil:
			return dag.Outcome{}, errors.Cancelled(command).WithCause(err)
		default:
			return dag.Outcome{}, errors.Process(r.Name(), err).WithDetail("container", r.cfg.Container)
		}
	}

	output := process.Tail(joinOutput(res.Stdout, res.Stderr), r.cfg.MaxOutput)
	if res.ExitCode != 0 {
		r.log.Warn("container command failed", logger.Fields(
			"container", r.cfg.Container,
			"command", command,
			"exit_code", res.ExitCode,
		))
		if output == "" {
			output = "command exited with code " + strconv.Itoa(res.ExitCode)
		}
		return dag.Failed(output), nil
	}
	return dag.Succeeded(output), nil
}

func joinOutput(stdout, stderr string) string {
	stdout = strings.TrimRight(stdout, "\n")
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n" + stderr
}
