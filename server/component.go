package server

import (
	"context"
	"sort"
	"strings"

	"github.com/tienminhktvn/dataops-project/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// probe routes are listed after the API in the startup summary.
var systemPaths = map[string]bool{
	"/health":  true,
	"/alive":   true,
	"/ready":   true,
	"/version": true,
}

// Component adapts Server to the component registry.
type Component struct {
	server *Server
}

// NewComponent returns a component.Component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

func (sc *Component) Name() string { return componentName }

func (sc *Component) Start(ctx context.Context) error { return sc.server.Start(ctx) }

func (sc *Component) Stop(ctx context.Context) error { return sc.server.Stop(ctx) }

func (sc *Component) Health(_ context.Context) component.Health {
	if !sc.server.started() {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Message: sc.server.Addr()}
}

func (sc *Component) Describe() component.Description {
	cfg := sc.server.config
	details := cfg.Addr()
	if sc.server.tlsConfig != nil {
		details += " tls"
	}
	if cfg.APIToken != "" {
		details += " token-auth"
	}
	return component.Description{Name: "HTTP Server", Type: "server", Details: details, Port: cfg.Port}
}

// Routes lists API routes by path, then the probe routes.
func (sc *Component) Routes() []component.Route {
	ginRoutes := sc.server.engine.Routes()
	sort.Slice(ginRoutes, func(i, j int) bool {
		iSys, jSys := systemPaths[ginRoutes[i].Path], systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return ginRoutes[i].Method < ginRoutes[j].Method
	})

	routes := make([]component.Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		routes = append(routes, component.Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: handlerName(r.Handler),
		})
	}
	return routes
}

// handlerName trims "github.com/.../endpoint.TriggerRun.func1" to
// "endpoint.TriggerRun".
func handlerName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".func1")
}
