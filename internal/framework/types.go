package framework

import "time"

// Message 消息结构（框架内部流转）
type Message struct {
	ID         string    // lmstfy job_id
	Queue      string    // 队列名称
	Data       []byte    // 原始 Job 数据
	ReceivedAt time.Time // 拉取时间
}
