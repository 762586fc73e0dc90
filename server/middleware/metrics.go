package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/observability"
)

// Metrics records request count, duration and in-flight requests.
func Metrics(m *observability.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.Start(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.End(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
