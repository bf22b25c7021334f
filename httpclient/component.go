package httpclient

import (
	"context"
	"fmt"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/resilience"
)

// Component registers an outbound client with the component registry so it
// shows up in the startup summary and /health.
type Component struct {
	config Config
	client *Client
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates the component; the client is built in Start.
func NewComponent(cfg Config) *Component {
	cfg.ApplyDefaults()
	return &Component{config: cfg}
}

func (c *Component) Name() string {
	return c.config.Name
}

func (c *Component) Start(_ context.Context) error {
	client, err := New(c.config)
	if err != nil {
		return err
	}
	c.client = client
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.client != nil {
		c.client.httpClient.CloseIdleConnections()
	}
	return nil
}

// Health is unhealthy before Start and degraded while the circuit is open.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.client == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case c.client.CircuitState() != resilience.StateClosed:
		h.Status = component.StatusDegraded
		h.Message = "circuit " + c.client.CircuitState().String()
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: fmt.Sprintf("timeout=%s retry=%t", c.config.Timeout, c.config.Retry != nil),
	}
}

// Client returns the client built by Start.
func (c *Component) Client() *Client {
	return c.client
}
