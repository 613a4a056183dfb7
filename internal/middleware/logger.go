package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one structured line per request.
func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if p, ok := PrincipalFrom(c); ok {
			fields["principal_id"] = p.ID
			fields["principal_role"] = p.Role
		}

		entry := logger.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request failed")
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Warn("request completed with errors")
		default:
			entry.Info("request completed")
		}
	}
}
