package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienminhktvn/dataops-project/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  string                 `json:"timestamp"`
	Components []component.Health     `json:"components,omitempty"`
}

// Health aggregates component health. Any unhealthy component makes the
// service unhealthy (503); a degraded one, such as a scheduler whose last
// run failed, reports degraded with 200.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := HealthReport{
			Status:    component.StatusHealthy,
			Service:   serviceName,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if checker != nil {
			report.Components = checker(c.Request.Context())
			report.Status = worst(report.Components)
		}

		code := http.StatusOK
		if report.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}

func worst(hs []component.Health) component.HealthStatus {
	status := component.StatusHealthy
	for _, h := range hs {
		switch h.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy
		case component.StatusDegraded:
			status = component.StatusDegraded
		}
	}
	return status
}
