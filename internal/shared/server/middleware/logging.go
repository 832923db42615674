package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/telemetry"
)

// Logging emits one structured line per request and counts responses by
// status class. Preflights and metric scrapes are not logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		metrics.IncHTTPResponse(status)

		fields := map[string]any{
			"request_id":    RequestIDFromContext(c),
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"route":         c.FullPath(),
			"status":        status,
			"bytes":         c.Writer.Size(),
			"duration_ms":   float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":       c.GetString(userIDKey),
			"submission_id": c.GetString("submissionId"),
			"client_ip":     c.ClientIP(),
			"user_agent":    c.Request.UserAgent(),
		}
		if isGuest, ok := c.Get("isGuest"); ok {
			fields["is_guest"] = isGuest
		}
		if transition := c.GetString("statusTransition"); transition != "" {
			fields["status_transition"] = transition
		}
		if status >= http.StatusInternalServerError {
			telemetry.Warn("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
