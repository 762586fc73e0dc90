// Package endpoint provides the health and liveness handlers.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/observability"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// Health reports aggregate service health. An unhealthy component answers 503.
func Health(serviceName, version string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.NewServiceHealth(serviceName, version)
		if checker != nil {
			for _, h := range checker(c.Request.Context()) {
				sh.Add(h)
			}
		}

		status := http.StatusOK
		if !sh.Healthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": sh.Components,
		})
	}
}

var started = time.Now()

// Liveness answers 200 while the process can serve HTTP. It does not consult
// components, so a degraded backend never restarts the pod.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "alive",
			"service": serviceName,
			"uptime":  time.Since(started).Truncate(time.Second).String(),
		})
	}
}
