package workload

import (
	"context"
)

// Executor runs commands in containers managed by a runtime.
type Executor interface {
	// Exec runs cmd in container and waits for it to exit.
	Exec(ctx context.Context, container string, cmd []string, opts ExecOptions) (*ExecResult, error)
	// Status inspects container.
	Status(ctx context.Context, container string) (*ContainerStatus, error)
	// Ping verifies the runtime is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// ExecOptions apply to one Exec call.
type ExecOptions struct {
	WorkingDir string
	User       string
	// Env entries are KEY=value.
	Env []string
}

// ExecResult is the outcome of a finished exec.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Container status values.
const (
	StatusRunning    = "running"
	StatusStopped    = "stopped"
	StatusRestarting = "restarting"
	StatusError      = "error"
	StatusNotFound   = "not_found"
)

// ContainerStatus is a summary of an inspected container.
type ContainerStatus struct {
	ID      string
	Name    string
	Image   string
	Status  string
	Running bool
	// Healthy follows the container healthcheck when one is defined and
	// Running otherwise.
	Healthy  bool
	ExitCode int
	Message  string
}

// Provider names.
const ProviderDocker = "docker"
