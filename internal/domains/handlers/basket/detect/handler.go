package detect

import (
	"context"
	"fmt"
	"time"

	"basketwatch/internal/business/anomaly"
	"basketwatch/internal/framework"
	"basketwatch/internal/model"
	"basketwatch/pkg/errorutil"
	"basketwatch/pkg/logger"
)

const notifyTimeout = 5 * time.Second

// Detector 执行一次检测（anomaly.Orchestrator 实现）
type Detector interface {
	Run(ctx context.Context, req anomaly.Request) (*anomaly.RunResult, error)
}

// Notifier 推送检测完成通知（redis.PubSub 实现）
type Notifier interface {
	PublishNotification(ctx context.Context, notification *model.DetectionNotification) error
}

// Handler 篮子金额异常检测 Handler
// 每条消息创建一个实例，字段只在本次处理中使用
type Handler struct {
	base     *framework.BaseHandler
	detector Detector
	notifier Notifier
	logger   logger.Logger

	bizData   model.DetectionBusinessData
	threshold float64
	result    *anomaly.RunResult
}

// NewFactory 返回注册到 HandlerMap 的构造函数
func NewFactory(detector Detector, notifier Notifier, log logger.Logger) framework.HandlerFactory {
	return func(ctx context.Context, base *framework.BaseHandler) (framework.BusinessHandler, error) {
		if detector == nil || notifier == nil {
			return nil, fmt.Errorf("detect handler dependencies are not configured")
		}
		return &Handler{
			base:     base,
			detector: detector,
			notifier: notifier,
			logger:   log,
		}, nil
	}
}

// Handle 解析 → 解析阈值 → 检测，然后无论成败都推送通知
// 业务失败同样 ACK（不重试），只有通知推送失败才返回 error
func (h *Handler) Handle(ctx context.Context) ([]byte, error) {
	runErr := framework.NewPreProcessor(
		framework.Step{Name: "decode", Fn: h.decode},
		framework.Step{Name: "resolve_threshold", Fn: h.resolveThreshold},
		framework.Step{Name: "detect", Fn: h.detect},
	).Run(ctx)

	notification := h.buildNotification(runErr)

	// 处理超时后仍需通知等待方
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := h.notifier.PublishNotification(notifyCtx, notification); err != nil {
		h.logger.Errorf(ctx, "[DetectHandler] publish notification failed: %v", err)
		return nil, fmt.Errorf("publish notification failed: %w", err)
	}

	if runErr != nil {
		h.logger.Warnf(ctx, "[DetectHandler] detection failed: kind=%s, err=%v", notification.Error.Kind, runErr)
		return h.base.WrapErrorResponse(ctx, notification.Error)
	}

	h.logger.Infof(ctx, "[DetectHandler] detection done: threshold=%.2f, anomalies=%d", h.threshold, len(h.result.Report))
	return h.base.WrapResponse(ctx, h.result.Report)
}

func (h *Handler) decode(ctx context.Context) error {
	if err := h.base.DecodePayload(&h.bizData); err != nil {
		return errorutil.InvalidInput(err.Error())
	}
	return nil
}

func (h *Handler) resolveThreshold(ctx context.Context) error {
	threshold, err := anomaly.ResolveThreshold(h.bizData.Threshold, h.bizData.Instruction)
	if err != nil {
		return err
	}
	h.threshold = threshold
	return nil
}

func (h *Handler) detect(ctx context.Context) error {
	result, err := h.detector.Run(ctx, anomaly.Request{
		Threshold: h.threshold,
		Limit:     h.bizData.Limit,
	})
	if err != nil {
		return err
	}
	h.result = result
	return nil
}

func (h *Handler) buildNotification(runErr error) *model.DetectionNotification {
	notification := &model.DetectionNotification{
		RequestID:   h.base.Meta().RequestID,
		ProcessedAt: time.Now().Unix(),
	}

	if runErr != nil {
		notification.Status = model.NotificationStatusFailed
		notification.Error = errorutil.Wrap(runErr)
		return notification
	}

	notification.Status = model.NotificationStatusSuccess
	notification.Report = h.result.Report
	if notification.Report == nil {
		notification.Report = model.AnomalyReport{}
	}
	return notification
}
