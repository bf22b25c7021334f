package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienminhktvn/dataops-project/component"
)

// Readiness reports not_ready (503) while any component is unhealthy. A
// degraded scheduler still accepts triggers, so it stays ready.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ready", http.StatusOK
		var failing []string
		if checker != nil {
			for _, h := range checker(c.Request.Context()) {
				if h.Status == component.StatusUnhealthy {
					failing = append(failing, h.Name)
				}
			}
		}
		if len(failing) > 0 {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		body := gin.H{
			"status":    status,
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if len(failing) > 0 {
			body["failing"] = failing
		}
		c.JSON(code, body)
	}
}
