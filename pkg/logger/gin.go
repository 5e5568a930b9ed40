package logger

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware logs one line per request through l.
func GinMiddleware(l Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}
		switch {
		case status >= 500:
			l.Errorf("%s %s -> %d %s", c.Request.Method, c.Request.URL.Path, status, c.Errors.String())
		case status >= 400:
			l.Warnf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status)
		default:
			l.Debugw("request", fields)
		}
	}
}
