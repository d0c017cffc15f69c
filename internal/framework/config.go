package framework

import (
	"time"

	"basketwatch/pkg/config"
)

// SubscriberConfig 单个检测队列的拉取参数
type SubscriberConfig struct {
	QueueName    string
	Concurrency  int           // 拉取协程数
	Timeout      time.Duration // lmstfy 长轮询等待时间
	TTR          time.Duration // 未 ACK 的任务在 TTR 后进入死信（tries=1）
	Rate         time.Duration // 两次拉取之间的间隔
	ErrorBackoff time.Duration
}

// ProcessorConfig 检测任务执行参数
// Timeout 需要覆盖一次完整检测（detection.run_timeout）加上通知推送
type ProcessorConfig struct {
	Concurrency int
	BufferSize  int
	Timeout     time.Duration
}

const (
	defaultConcurrency = 1
	defaultPollTimeout = 3 * time.Second
	defaultTTR         = time.Minute
	defaultBackoff     = time.Second
	defaultJobTimeout  = 45 * time.Second
)

// NewSubscriberConfig 由 workers[].subscriber 配置生成，未填写的字段取默认值
func NewSubscriberConfig(queue string, c config.SubscriberConfig) *SubscriberConfig {
	cfg := &SubscriberConfig{
		QueueName:    queue,
		Concurrency:  c.Threads,
		Timeout:      c.Timeout,
		TTR:          c.TTR,
		Rate:         c.Rate,
		ErrorBackoff: c.ErrorBackoff,
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPollTimeout
	}
	if cfg.TTR <= 0 {
		cfg.TTR = defaultTTR
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = defaultBackoff
	}
	return cfg
}

// NewProcessorConfig 由 workers[].processor 配置生成
func NewProcessorConfig(c config.ProcessorConfig) *ProcessorConfig {
	cfg := &ProcessorConfig{
		Concurrency: c.Threads,
		BufferSize:  c.BufferSize,
		Timeout:     c.Timeout,
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.BufferSize < 0 {
		cfg.BufferSize = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultJobTimeout
	}
	return cfg
}
