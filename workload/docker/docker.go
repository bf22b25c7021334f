// Package docker implements workload.Executor on the Docker Engine API.
package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/client"

	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/workload"
)

func init() {
	workload.RegisterFactory(workload.ProviderDocker, func(providerCfg any, log *logger.Logger) (workload.Executor, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("docker: expected *docker.Config, got %T", providerCfg)
			}
			c = pc
		}
		return NewExecutor(c, log)
	})
}

// engineAPI is the part of the Docker client the executor uses.
type engineAPI interface {
	client.ContainerAPIClient
	client.SystemAPIClient
	Close() error
}

// Executor runs commands in containers through the Docker Engine.
type Executor struct {
	api engineAPI
	log *logger.Logger
}

var _ workload.Executor = (*Executor)(nil)

// NewExecutor connects to the daemon described by cfg.
func NewExecutor(cfg *Config, log *logger.Logger) (*Executor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []client.Opt{client.WithHost(cfg.Host)}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}
	if cfg.TLS != nil {
		opts = append(opts, client.WithTLSClientConfig(cfg.TLS.CAFile, cfg.TLS.CertFile, cfg.TLS.KeyFile))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker: create client: %w", err)
	}
	if log == nil {
		log = logger.Get("docker")
	}
	return &Executor{api: cli, log: log}, nil
}

// Ping verifies the daemon is reachable.
func (e *Executor) Ping(ctx context.Context) error {
	if _, err := e.api.Ping(ctx); err != nil {
		return fmt.Errorf("docker: ping: %w", err)
	}
	return nil
}

// Status inspects a container. A missing container is reported as
// StatusNotFound rather than an error.
func (e *Executor) Status(ctx context.Context, id string) (*workload.ContainerStatus, error) {
	info, err := e.api.ContainerInspect(ctx, id)
	if err != nil {
		if client.IsErrNotFound(err) {
			return &workload.ContainerStatus{ID: id, Status: workload.StatusNotFound}, nil
		}
		return nil, fmt.Errorf("docker: inspect container: %w", err)
	}

	st := &workload.ContainerStatus{
		ID:   info.ID,
		Name: strings.TrimPrefix(info.Name, "/"),
	}
	if info.Config != nil {
		st.Image = info.Config.Image
	}
	if info.State == nil {
		st.Status = workload.StatusError
		return st, nil
	}
	st.Running = info.State.Running
	st.Healthy = info.State.Running
	if info.State.Health != nil {
		st.Healthy = info.State.Health.Status == "healthy"
	}
	switch {
	case info.State.Running:
		st.Status = workload.StatusRunning
	case info.State.Restarting:
		st.Status = workload.StatusRestarting
	case info.State.ExitCode != 0:
		st.Status = workload.StatusError
	default:
		st.Status = workload.StatusStopped
	}
	st.ExitCode = info.State.ExitCode
	st.Message = string(info.State.Status)
	return st, nil
}

// Close releases the client's transport.
func (e *Executor) Close() error {
	return e.api.Close()
}
