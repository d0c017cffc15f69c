package worker

import (
	"context"

	"basketwatch/internal/framework"
	"basketwatch/pkg/lmstfyx"
	"basketwatch/pkg/logger"
)

// Worker 接口
type Worker interface {
	Start()
	Shutdown()
	GetName() string
}

// WorkerInstance 一个队列对应一个 Worker：Subscriber 拉取，Processor 处理
type WorkerInstance struct {
	ctx        context.Context
	name       string
	subscriber *framework.Subscriber
	processor  *framework.Processor
	inputChan  chan *framework.Message
	ready      chan struct{}
	shutdownCh chan struct{}
	logger     logger.Logger
}

// NewWorkerInstance 创建 Worker 实例
func NewWorkerInstance(
	ctx context.Context,
	name string,
	subscriberCfg *framework.SubscriberConfig,
	processorCfg *framework.ProcessorConfig,
	source framework.MessageSource,
	proc lmstfyx.Proc,
	log logger.Logger,
) (Worker, error) {
	inputChan := make(chan *framework.Message, processorCfg.BufferSize)

	return &WorkerInstance{
		ctx:        ctx,
		name:       name,
		subscriber: framework.NewSubscriber(subscriberCfg, source, log),
		processor:  framework.NewProcessor(processorCfg, proc, source, log),
		inputChan:  inputChan,
		ready:      make(chan struct{}),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}, nil
}

// Start 启动 Worker，阻塞直到 Shutdown 完成
func (w *WorkerInstance) Start() {
	w.logger.Infof(w.ctx, "[Worker] %s started", w.name)

	_ = w.processor.Start(w.ctx, w.inputChan)
	_ = w.subscriber.Start(w.ctx, w.inputChan)
	close(w.ready)

	<-w.shutdownCh
}

// Shutdown 优雅退出：停止拉取 → 等待 Subscriber → Drain Processor → 等待 Processor
func (w *WorkerInstance) Shutdown() {
	w.logger.Infof(w.ctx, "[Worker] %s began to close", w.name)
	<-w.ready

	w.subscriber.Stop()
	w.subscriber.Wait()

	w.processor.SignalShutdown()
	w.processor.Wait()

	close(w.shutdownCh)
	w.logger.Infof(w.ctx, "[Worker] %s shutdown complete", w.name)
}

// GetName 获取 Worker 名称
func (w *WorkerInstance) GetName() string {
	return w.name
}
