package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"basketwatch/pkg/logger"
)

const (
	// HeaderRequestID 请求 ID 头，同时作为异步任务的 request_id
	HeaderRequestID = "X-Request-ID"

	requestIDKey = "request_id"
)

// Trace 为每个请求分配 request_id，并注入到 Request Context 供日志使用
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), requestID))

		c.Next()
	}
}

// RequestID 读取当前请求的 request_id
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
