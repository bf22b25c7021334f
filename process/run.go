package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const defaultGracePeriod = 5 * time.Second

// Run executes cmd and waits for it. On context cancellation the process
// group gets SIGTERM, then SIGKILL after GracePeriod. A non-zero exit returns
// both the result and an error wrapping *exec.ExitError.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	grace := cmd.GracePeriod
	if grace == 0 {
		grace = defaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running configured commands is the point
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	// dbt spawns children; signal the whole group.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	start := time.Now()
	err := c.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("process: killed by context: %w", ctx.Err())
		}
		return result, fmt.Errorf("process: exit code %d: %w", result.ExitCode, err)
	}
	return result, nil
}

func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), extra...)
}
