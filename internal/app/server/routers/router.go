package routers

import (
	"github.com/gin-gonic/gin"

	"basketwatch/internal/app/pkg/ginx"
	"basketwatch/internal/app/server/handlers/detection"
	"basketwatch/internal/app/server/handlers/health"
	"basketwatch/internal/app/server/middlewares"
	"basketwatch/pkg/logger"
)

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(
	detectionHandler *detection.DetectionHandler,
	healthHandler *health.HealthHandler,
	log logger.Logger,
) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.Trace())
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.ErrorHandler(log))

	r.NoRoute(func(c *gin.Context) {
		ginx.NotFound(c, "route not found: "+c.Request.Method+" "+c.Request.URL.Path)
	})

	r.GET("/health", healthHandler.Get)

	v1 := r.Group("/api/v1")
	{
		detections := v1.Group("/detections")
		{
			detections.POST("", detectionHandler.Create)
		}
	}

	return r
}
