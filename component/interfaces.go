package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-lived part of the service (database, scheduler, HTTP
// server) started and stopped by the Registry.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is one line of the startup summary.
type Description struct {
	// Name is the display name; the component's Name() is used when empty.
	Name string
	// Type categorizes the component: "database", "scheduler", "server".
	Type string
	// Details is a one-liner such as "cron=0 1 * * * target=dev".
	Details string
	Port    int
}

// Describable is optionally implemented by components that want a line in
// the startup summary.
type Describable interface {
	Describe() Description
}

// Route holds a single HTTP route for the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is optionally implemented by server components.
type RouteProvider interface {
	Routes() []Route
}
