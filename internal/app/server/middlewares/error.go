package middlewares

import (
	"errors"

	"github.com/gin-gonic/gin"

	"basketwatch/internal/app/pkg/ginx"
	"basketwatch/pkg/logger"
)

// ErrorHandler 统一错误处理中间件
// 捕获 panic，以及 handler 通过 c.Error 挂上但未输出响应的错误
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(c.Request.Context(), "panic recovered: %v", r)
				if !c.Writer.Written() {
					ginx.FromError(c, errors.New("panic recovered"), RequestID(c))
				}
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			log.Errorf(c.Request.Context(), "request failed: %v", err.Err)
			ginx.FromError(c, err.Err, RequestID(c))
		}
	}
}
