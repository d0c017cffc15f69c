package model

import "basketwatch/pkg/errorutil"

// ActionTypeBasketDetect 异步检测任务的路由键
const ActionTypeBasketDetect = "basket_anomaly_detect"

// DetectionBusinessData Job 消息中的业务数据
type DetectionBusinessData struct {
	Threshold   *float64 `json:"threshold,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// DetectionJob 标准化的检测任务消息
type DetectionJob struct {
	Payload DetectionPayload `json:"payload"`
}

// DetectionPayload 任务负载
type DetectionPayload struct {
	Data DetectionData `json:"data"`
}

// DetectionData 任务元信息 + 业务数据
type DetectionData struct {
	RequestID  string                `json:"request_id"`
	OrgID      string                `json:"org_id"`
	ActionType string                `json:"action_type"`
	ID         string                `json:"id"`
	Data       DetectionBusinessData `json:"data"`
}

// 通知状态
const (
	NotificationStatusSuccess = "SUCCESS"
	NotificationStatusFailed  = "FAILED"
)

// DetectionNotification Worker 完成检测后推送到 Redis 的通知
type DetectionNotification struct {
	RequestID   string           `json:"request_id"`
	Status      string           `json:"status"`
	Report      AnomalyReport    `json:"report"`
	Error       *errorutil.Error `json:"error,omitempty"`
	ProcessedAt int64            `json:"processed_at"`
}

// ResultChannel Smart Wait 订阅的频道（业务约定：detection:result:{requestID}）
func ResultChannel(requestID string) string {
	return "detection:result:" + requestID
}
