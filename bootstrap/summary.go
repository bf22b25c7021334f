package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tienminhktvn/dataops-project/component"
)

// PipelineInfo is the pipeline section of the summary.
type PipelineInfo struct {
	ID       string
	Schedule string
	NextRun  time.Time
	Levels   [][]string
}

// Summary renders the startup report: infrastructure and routes come from
// the component registry, the pipeline section from SetPipeline.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	pipeline        *PipelineInfo
}

// NewSummary creates a summary for the named service.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// SetPipeline adds the pipeline section.
func (s *Summary) SetPipeline(info PipelineInfo) {
	s.pipeline = &info
}

// Render writes the summary with live health from registry.
func (s *Summary) Render(ctx context.Context, w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		s.renderInfrastructure(w, registry.Describe())
	}
	if s.pipeline != nil {
		s.renderPipeline(w)
	}
	if registry != nil {
		renderRoutes(w, registry.All())
		renderHealth(w, registry.HealthAll(ctx))
	}
	fmt.Fprintln(w)
}

func (s *Summary) renderInfrastructure(w io.Writer, infra []component.Description) {
	fmt.Fprintf(w, "\n📊 Infrastructure\n")
	if len(infra) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n")
		return
	}
	for i, inf := range infra {
		details := inf.Details
		if inf.Port > 0 {
			details = fmt.Sprintf("%s (:%d)", details, inf.Port)
		}
		fmt.Fprintf(w, "   %s %s [%s]: %s\n", branch(i, len(infra)), inf.Name, inf.Type, details)
	}
}

func (s *Summary) renderPipeline(w io.Writer) {
	p := s.pipeline
	fmt.Fprintf(w, "\n🧭 Pipeline %s\n", p.ID)
	schedule := "manual only"
	if p.Schedule != "" {
		schedule = p.Schedule
		if !p.NextRun.IsZero() {
			schedule += ", next " + p.NextRun.Format(time.RFC3339)
		}
	}
	fmt.Fprintf(w, "   ├── schedule: %s\n", schedule)
	for i, level := range p.Levels {
		fmt.Fprintf(w, "   %s level %d: %s\n", branch(i, len(p.Levels)), i, strings.Join(level, ", "))
	}
}

func renderRoutes(w io.Writer, components []component.Component) {
	var routes []component.Route
	for _, c := range components {
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}
	if len(routes) == 0 {
		return
	}
	fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
	for i, r := range routes {
		fmt.Fprintf(w, "   %s %-7s %s → %s\n", branch(i, len(routes)), r.Method, r.Path, r.Handler)
	}
}

func renderHealth(w io.Writer, results []component.Health) {
	if len(results) == 0 {
		return
	}
	healthy := 0
	fmt.Fprintf(w, "\n🏥 Health Check\n")
	for i, h := range results {
		msg := ""
		if h.Message != "" {
			msg = ": " + h.Message
		}
		if h.Status == component.StatusHealthy {
			healthy++
		}
		fmt.Fprintf(w, "   %s %s %s %s%s\n", branch(i, len(results)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
	}
	if healthy == len(results) {
		fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n", healthy, len(results))
	} else {
		fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(results))
	}
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
