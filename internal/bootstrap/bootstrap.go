package bootstrap

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"basketwatch/internal/business/anomaly"
	"basketwatch/pkg/config"
	"basketwatch/pkg/infra/redis"
	"basketwatch/pkg/infra/warehouse"
	"basketwatch/pkg/lmstfy"
	"basketwatch/pkg/logger"
)

// Core 检测核心依赖（三个进程共用）
type Core struct {
	DB           *gorm.DB
	Gateway      *warehouse.Gateway
	Orchestrator *anomaly.Orchestrator
}

// NewCore 建立数仓连接并组装编排器
func NewCore(cfg *config.Config, log logger.Logger) (*Core, func(), error) {
	db, err := warehouse.Open(cfg.Warehouse.Driver, cfg.Warehouse.DSN)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := warehouse.Close(db); err != nil {
			log.Warnf(context.Background(), "close warehouse failed: %v", err)
		}
	}

	gw, err := warehouse.NewGateway(db, warehouse.Tables{
		SalesFact:   cfg.Warehouse.Tables.SalesFact,
		ProductDim:  cfg.Warehouse.Tables.ProductDim,
		CustomerDim: cfg.Warehouse.Tables.CustomerDim,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	orch := anomaly.NewOrchestrator(gw, anomaly.NewFormatter(NewIssueWriter(cfg)), anomaly.Options{
		OrderLimit:   cfg.Detection.OrderLimit,
		MaxThreshold: cfg.Detection.MaxThreshold,
		MaxTurns:     cfg.Detection.MaxTurns,
		RunTimeout:   cfg.Detection.RunTimeout,
	}, log)

	return &Core{DB: db, Gateway: gw, Orchestrator: orch}, cleanup, nil
}

// NewIssueWriter llm.enabled 时使用模型生成说明，否则使用模板
func NewIssueWriter(cfg *config.Config) anomaly.IssueWriter {
	if !cfg.LLM.Enabled {
		return anomaly.NewTemplateWriter()
	}
	return anomaly.NewModelWriter(anomaly.ModelWriterConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
}

// NewQueue 创建 Redis 与 Lmstfy 客户端
func NewQueue(ctx context.Context, cfg *config.Config) (*redis.PubSub, *lmstfy.Client, error) {
	ps, err := redis.NewPubSub(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}

	client, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to create lmstfy client: %w", err)
	}

	return ps, client, nil
}
