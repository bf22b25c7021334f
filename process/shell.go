package process

import (
	"context"
	stderrors "errors"
	"os/exec"
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/logger"
)

// ShellConfig configures ShellRunner.
type ShellConfig struct {
	// Shell is invoked as "<shell> -c <command>". Defaults to sh.
	Shell string   `yaml:"shell" mapstructure:"shell"`
	Dir   string   `yaml:"dir" mapstructure:"dir"`
	Env   []string `yaml:"env" mapstructure:"env"`
	// GracePeriod defaults to 5s.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// MaxOutput caps the output kept as the outcome detail. Defaults to 4 KiB.
	MaxOutput int `yaml:"max_output" mapstructure:"max_output"`
}

func (c *ShellConfig) ApplyDefaults() {
	if c.Shell == "" {
		c.Shell = "sh"
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = defaultGracePeriod
	}
	if c.MaxOutput <= 0 {
		c.MaxOutput = 4096
	}
}

// ShellRunner runs pipeline commands on the local host.
type ShellRunner struct {
	cfg ShellConfig
	log *logger.Logger
}

// NewShellRunner creates a runner; log may be nil.
func NewShellRunner(cfg ShellConfig, log *logger.Logger) *ShellRunner {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Get("process")
	}
	return &ShellRunner{cfg: cfg, log: log}
}

func (r *ShellRunner) Name() string { return "shell" }

// Execute runs command to completion. A non-zero exit is a FAILURE outcome
// carrying the output tail; a context deadline is a Timeout error and any
// other failure to run is a Process error.
func (r *ShellRunner) Execute(ctx context.Context, command string) (dag.Outcome, error) {
	res, err := Run(ctx, Command{
		Binary:      r.cfg.Shell,
		Args:        []string{"-c", command},
		Dir:         r.cfg.Dir,
		Env:         r.cfg.Env,
		GracePeriod: r.cfg.GracePeriod,
	})
	output := res.Output(r.cfg.MaxOutput)

	fields := logger.Fields("command", command, logger.FieldDuration, durationMs(res))
	if err == nil {
		r.log.Debug("command succeeded", fields)
		return dag.Succeeded(output), nil
	}

	var exitErr *exec.ExitError
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return dag.Outcome{}, errors.Timeout(command).WithCause(err)
	case ctx.Err() != nil:
		return dag.Outcome{}, errors.Cancelled(command).WithCause(err)
	case stderrors.As(err, &exitErr):
		fields["exit_code"] = res.ExitCode
		r.log.Warn("command failed", fields)
		if output == "" {
			output = err.Error()
		}
		return dag.Failed(output), nil
	default:
		return dag.Outcome{}, errors.Process(r.Name(), err)
	}
}

func durationMs(res *Result) int64 {
	if res == nil {
		return 0
	}
	return res.Duration.Milliseconds()
}
