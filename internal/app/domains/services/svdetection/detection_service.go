package svdetection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"basketwatch/internal/business/anomaly"
	"basketwatch/internal/model"
	"basketwatch/pkg/errorutil"
	"basketwatch/pkg/logger"
)

// Detector 进程内同步检测（anomaly.Orchestrator 实现）
type Detector interface {
	Run(ctx context.Context, req anomaly.Request) (*anomaly.RunResult, error)
}

// AsyncDetector 经队列异步检测（mddetection.DetectionModule 实现）
type AsyncDetector interface {
	DetectAndWait(ctx context.Context, requestID string, threshold float64, limit int, timeout time.Duration) (*model.DetectionNotification, error)
}

// Input 检测输入
type Input struct {
	Threshold   *float64
	Instruction string
	Limit       int
	WaitSeconds int
}

// Outcome 检测结果
type Outcome struct {
	RequestID string
	Threshold float64
	Async     bool
	Report    model.AnomalyReport
}

// DetectionService 检测服务，负责同步/异步两条路径的编排
type DetectionService struct {
	detector Detector
	async    AsyncDetector
	logger   logger.Logger
}

// NewDetectionService 创建检测服务，async 为 nil 时只走同步路径
func NewDetectionService(detector Detector, async AsyncDetector, log logger.Logger) *DetectionService {
	return &DetectionService{
		detector: detector,
		async:    async,
		logger:   log,
	}
}

// Detect 执行检测
// 1. 解析阈值（非法输入在投递前拒绝）
// 2. wait>0 且开启异步：投递队列并 Smart Wait
// 3. 否则进程内同步执行
func (s *DetectionService) Detect(ctx context.Context, requestID string, in Input) (*Outcome, error) {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = logger.WithTraceID(ctx, requestID)

	threshold, err := anomaly.ResolveThreshold(in.Threshold, in.Instruction)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{RequestID: requestID, Threshold: threshold}

	if in.WaitSeconds > 0 && s.async != nil {
		outcome.Async = true
		timeout := time.Duration(in.WaitSeconds) * time.Second

		notification, err := s.async.DetectAndWait(ctx, requestID, threshold, in.Limit, timeout)
		if err != nil {
			s.logger.Warnf(ctx, "[DetectionService] async detection failed: %v", err)
			return nil, asyncError(err)
		}
		if notification.Status != model.NotificationStatusSuccess {
			if notification.Error != nil {
				return nil, notification.Error
			}
			return nil, errors.New("detection failed without error details")
		}

		outcome.Report = notification.Report
		return outcome, nil
	}

	result, err := s.detector.Run(ctx, anomaly.Request{Threshold: threshold, Limit: in.Limit})
	if err != nil {
		return nil, err
	}

	outcome.Report = result.Report
	return outcome, nil
}

// asyncError 队列或 Redis 故障视为依赖不可用，超时/取消保持原类别
func asyncError(err error) error {
	switch errorutil.KindOf(err) {
	case errorutil.KindTimeout, errorutil.KindCancelled:
		return err
	default:
		return errorutil.DataUnavailable("detection queue is unavailable", err)
	}
}
