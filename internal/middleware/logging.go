package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/presence-app/presence/internal/logging"
)

// Logger middleware logs request details through the structured logger
func Logger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.LogHTTPRequest(
			c.Request.Method,
			path,
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
