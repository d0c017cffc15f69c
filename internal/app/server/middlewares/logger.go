package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"basketwatch/pkg/logger"
)

// Logger 访问日志
func Logger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Infof(c.Request.Context(), "%s %s status=%d latency=%v",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
