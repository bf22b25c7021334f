package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/logger"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs the Hub loop under the component registry.
type Component struct {
	cfg Config
	hub *Hub
	wg  sync.WaitGroup
}

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Get("sse")
	}
	return &Component{cfg: cfg, hub: NewHub(log.WithComponent("sse"))}
}

func (c *Component) Hub() *Hub      { return c.hub }
func (c *Component) Config() Config { return c.cfg }

func (c *Component) Name() string { return "event-stream" }

func (c *Component) Start(_ context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop closes every stream and waits for the hub loop to exit.
func (c *Component) Stop(_ context.Context) error {
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("keepalive=%s buffer=%d", c.cfg.KeepAlive, c.cfg.ClientBuffer)
	if c.cfg.MaxClients > 0 {
		details += fmt.Sprintf(" max_clients=%d", c.cfg.MaxClients)
	}
	return component.Description{Name: "Event Stream", Type: "sse", Details: details}
}
