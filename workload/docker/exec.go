package docker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/workload"
)

// Exec runs cmd in the container and waits for it. The multiplexed stream is
// split into stdout and stderr. When ctx ends the attach connection is closed
// and ctx's error returned; the exec itself keeps running in the container
// because the Engine API has no way to signal it.
func (e *Executor) Exec(ctx context.Context, id string, cmd []string, opts workload.ExecOptions) (*workload.ExecResult, error) {
	created, err := e.api.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		Env:          opts.Env,
		WorkingDir:   opts.WorkingDir,
		User:         opts.User,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("docker: exec create: %w", err)
	}

	resp, err := e.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: exec attach: %w", err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader)
		copied <- err
	}()

	select {
	case err := <-copied:
		if err != nil {
			return nil, fmt.Errorf("docker: exec read output: %w", err)
		}
	case <-ctx.Done():
		resp.Close()
		<-copied
		e.log.Warn("abandoned container exec", logger.Fields("container", id, "exec_id", created.ID, logger.FieldError, ctx.Err().Error()))
		return nil, ctx.Err()
	}

	inspect, err := e.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("docker: exec inspect: %w", err)
	}
	return &workload.ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
