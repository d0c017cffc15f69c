package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"basketwatch/internal/domains"
	"basketwatch/internal/framework"
	"basketwatch/pkg/config"
	"basketwatch/pkg/logger"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance 按配置创建并管理所有 Worker
type ManagerInstance struct {
	ctx        context.Context
	cfg        *config.Config
	source     framework.MessageSource
	handlers   map[string]framework.HandlerFactory
	workers    []Worker
	started    chan struct{}
	closing    *atomic.Bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	logger     logger.Logger
}

// NewManagerInstance 创建 Manager
func NewManagerInstance(
	cfg *config.Config,
	source framework.MessageSource,
	handlers map[string]framework.HandlerFactory,
	log logger.Logger,
) (*ManagerInstance, error) {
	if len(cfg.Workers) == 0 {
		return nil, fmt.Errorf("at least one worker is required")
	}
	if source == nil {
		return nil, fmt.Errorf("message source is required")
	}

	return &ManagerInstance{
		ctx:        context.Background(),
		cfg:        cfg,
		source:     source,
		handlers:   handlers,
		workers:    make([]Worker, 0, len(cfg.Workers)),
		started:    make(chan struct{}),
		closing:    atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}, nil
}

// Start 启动所有 Worker，阻塞直到 Shutdown
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	if err := m.loadWorkers(); err != nil {
		close(m.started)
		return fmt.Errorf("failed to load workers: %w", err)
	}

	m.logger.Infof(m.ctx, "[Manager] All workers loaded, count: %d", len(m.workers))

	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}

	m.logger.Infof(m.ctx, "[Manager] Start success")
	close(m.started)

	<-m.shutdownCh

	return nil
}

// Shutdown 优雅退出，可重复调用
func (m *ManagerInstance) Shutdown() {
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	if m.closing.CAS(false, true) {
		// 等 Start 完成 Worker 加载，避免与 loadWorkers 并发
		<-m.started

		for _, worker := range m.workers {
			m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
			worker.Shutdown()
		}

		m.wg.Wait()
		close(m.shutdownCh)

		m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
	}
}

// loadWorkers 加载所有 Worker
func (m *ManagerInstance) loadWorkers() error {
	proc := domains.GetProcess(m.logger, m.handlers)

	for _, workerCfg := range m.cfg.Workers {
		subCfg := framework.NewSubscriberConfig(workerCfg.QueueName, workerCfg.Subscriber)
		procCfg := framework.NewProcessorConfig(workerCfg.Processor)

		worker, err := NewWorkerInstance(
			m.ctx,
			workerCfg.Name,
			subCfg,
			procCfg,
			m.source,
			proc,
			m.logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create worker %s: %w", workerCfg.Name, err)
		}

		m.workers = append(m.workers, worker)
	}

	return nil
}
