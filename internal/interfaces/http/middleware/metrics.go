package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latency by route template.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
