package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"basketwatch/internal/app/domains/modules/mddetection"
	"basketwatch/internal/app/domains/services/svdetection"
	"basketwatch/internal/app/server/handlers/detection"
	"basketwatch/internal/app/server/handlers/health"
	"basketwatch/internal/app/server/routers"
	"basketwatch/internal/bootstrap"
	"basketwatch/pkg/config"
	"basketwatch/pkg/logger"
)

// App HTTP 应用
type App struct {
	Engine *gin.Engine
}

// InitializeApp 组装依赖：数仓 → 编排器 →（可选）队列 → 服务 → 路由
func InitializeApp(cfg *config.Config, log logger.Logger) (*App, func(), error) {
	core, closeCore, err := bootstrap.NewCore(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanups := []func(){closeCore}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	checkers := map[string]health.Checker{
		"warehouse": core.Gateway.Ping,
	}

	var async svdetection.AsyncDetector
	if cfg.Server.AsyncEnabled {
		ps, client, err := bootstrap.NewQueue(context.Background(), cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = ps.Close() })
		checkers["redis"] = ps.Ping

		async = mddetection.NewDetectionModule(client, ps, cfg.Lmstfy.Queue, cfg.App.Name)
	}

	detectionService := svdetection.NewDetectionService(core.Orchestrator, async, log)

	engine := routers.SetupRoutes(
		detection.NewDetectionHandler(detectionService),
		health.NewHealthHandler(cfg.App.Name, checkers),
		log,
	)

	return &App{Engine: engine}, cleanup, nil
}
