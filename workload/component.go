package workload

import (
	"context"
	"fmt"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/logger"
)

// Component owns the Executor lifecycle for the component registry.
type Component struct {
	cfg         Config
	providerCfg any
	log         *logger.Logger
	exec        Executor
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates the component; the Executor is built in Start.
func NewComponent(cfg Config, providerCfg any, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Get("workload")
	}
	return &Component{cfg: cfg, providerCfg: providerCfg, log: log.WithComponent("workload")}
}

// Executor returns the Executor, or nil before Start or when disabled.
func (c *Component) Executor() Executor {
	return c.exec
}

// Runner returns a ContainerRunner over the started Executor.
func (c *Component) Runner() *ContainerRunner {
	if c.exec == nil {
		return nil
	}
	return NewContainerRunner(c.exec, c.cfg, c.log)
}

func (c *Component) Name() string { return "workload" }

func (c *Component) Start(_ context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("container runner is disabled")
		return nil
	}
	exec, err := New(c.cfg, c.providerCfg, c.log)
	if err != nil {
		return fmt.Errorf("workload start: %w", err)
	}
	c.exec = exec
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.exec == nil {
		return nil
	}
	err := c.exec.Close()
	c.exec = nil
	return err
}

// Health checks the runtime and that the target container is running.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
		return h
	case c.exec == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "container runtime not initialized"
		return h
	}
	if err := c.exec.Ping(ctx); err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = fmt.Sprintf("runtime unreachable: %v", err)
		return h
	}
	st, err := c.exec.Status(ctx, c.cfg.Container)
	switch {
	case err != nil:
		h.Status = component.StatusUnhealthy
		h.Message = err.Error()
	case !st.Running:
		h.Status = component.StatusUnhealthy
		h.Message = fmt.Sprintf("container %s is %s", c.cfg.Container, st.Status)
	case !st.Healthy:
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("container %s healthcheck failing", c.cfg.Container)
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Workload",
		Type:    "workload",
		Details: fmt.Sprintf("provider=%s container=%s enabled=%t", c.cfg.Provider, c.cfg.Container, c.cfg.Enabled),
	}
}
