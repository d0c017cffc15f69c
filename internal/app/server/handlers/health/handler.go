package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker 依赖探活函数
type Checker func(ctx context.Context) error

// HealthHandler 健康检查
type HealthHandler struct {
	service  string
	checkers map[string]Checker
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(service string, checkers map[string]Checker) *HealthHandler {
	return &HealthHandler{service: service, checkers: checkers}
}

// Get GET /health
func (h *HealthHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checkers))
	for name, check := range h.checkers {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":       state,
		"service":      h.service,
		"dependencies": deps,
	})
}
