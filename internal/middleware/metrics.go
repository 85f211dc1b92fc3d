package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unicef/etools-docflow/internal/service"
)

// Metrics records per-request duration and status counts. Unmatched routes
// fall back to the raw path so 404 noise stays distinguishable.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
