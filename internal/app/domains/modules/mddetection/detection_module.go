package mddetection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"basketwatch/internal/model"
	"basketwatch/pkg/infra/redis"
)

// JobPublisher 任务投递（lmstfy.Client 实现）
type JobPublisher interface {
	Publish(queue string, data []byte) (string, error)
}

// DetectionModule 异步检测模块
// 负责 Job 消息格式与结果频道的业务约定，组装 lmstfy 与 Redis
type DetectionModule struct {
	publisher JobPublisher
	pubsub    *redis.PubSub
	queueName string
	orgID     string
}

// NewDetectionModule 创建异步检测模块
func NewDetectionModule(publisher JobPublisher, pubsub *redis.PubSub, queueName, orgID string) *DetectionModule {
	return &DetectionModule{
		publisher: publisher,
		pubsub:    pubsub,
		queueName: queueName,
		orgID:     orgID,
	}
}

// DetectAndWait 订阅结果频道 → 投递任务 → 等待通知（Smart Wait）
// 先订阅再投递，Worker 再快也不会漏掉通知
func (m *DetectionModule) DetectAndWait(ctx context.Context, requestID string, threshold float64, limit int, timeout time.Duration) (*model.DetectionNotification, error) {
	sub, err := m.pubsub.SubscribeResult(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	if err := m.publishDetectJob(requestID, threshold, limit); err != nil {
		return nil, err
	}

	return sub.Wait(ctx, timeout)
}

// publishDetectJob 构造标准化消息并投递
func (m *DetectionModule) publishDetectJob(requestID string, threshold float64, limit int) error {
	message := model.DetectionJob{
		Payload: model.DetectionPayload{
			Data: model.DetectionData{
				RequestID:  requestID,
				OrgID:      m.orgID,
				ActionType: model.ActionTypeBasketDetect,
				ID:         requestID,
				Data: model.DetectionBusinessData{
					Threshold: &threshold,
					Limit:     limit,
				},
			},
		},
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal detection job failed: %w", err)
	}

	if _, err := m.publisher.Publish(m.queueName, data); err != nil {
		return err
	}
	return nil
}
