package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/captionkit/observability"
)

// Metrics records request count, latency and in-flight requests per route.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		m.RecordRequestStart(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequestEnd(ctx, route, c.Writer.Status(), time.Since(start))
	}
}
