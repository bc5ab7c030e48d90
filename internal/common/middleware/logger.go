package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"gdz-miniapp-backend/internal/common/logger"
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			// admin-секрет приходит в query и в логи попадать не должен
			q := c.Request.URL.Query()
			if q.Has("secret") {
				q.Set("secret", "[redacted]")
			}
			path = path + "?" + q.Encode()
		}

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size()).
			Msg("Request processed")
	}
}
