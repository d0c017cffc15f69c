package lmstfy

import (
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"

	"basketwatch/internal/framework"
)

const (
	// DefaultJobTTL 任务在队列中的存活时间（秒）
	DefaultJobTTL uint32 = 3600
	// DefaultJobTries 只投递一次，失败不重试
	DefaultJobTries uint16 = 1
)

// Client Lmstfy 客户端封装
// API 侧用于投递检测任务，Worker 侧作为 framework.MessageSource
type Client struct {
	cli *client.LmstfyClient
}

// NewClient 创建 Lmstfy 客户端
func NewClient(host string, port int, namespace string, token string) (*Client, error) {
	if host == "" || namespace == "" {
		return nil, fmt.Errorf("lmstfy host and namespace are required")
	}
	return &Client{
		cli: client.NewLmstfyClient(host, port, namespace, token),
	}, nil
}

// Consume 消费消息（实现 MessageSource 接口），超时未拉到消息返回 nil, nil
func (c *Client) Consume(queue string, timeout time.Duration, ttr time.Duration) (*framework.Message, error) {
	timeoutSec := uint32(timeout.Seconds())
	ttrSec := uint32(ttr.Seconds())

	job, err := c.cli.Consume(queue, ttrSec, timeoutSec)
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume failed: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	return &framework.Message{
		ID:         job.ID,
		Queue:      queue,
		Data:       job.Data,
		ReceivedAt: time.Now(),
	}, nil
}

// Ack 确认消息（实现 MessageSource 接口）
func (c *Client) Ack(queue string, jobID string) error {
	if err := c.cli.Ack(queue, jobID); err != nil {
		return fmt.Errorf("lmstfy ack failed: %w", err)
	}
	return nil
}

// Publish 投递任务，返回 job_id
func (c *Client) Publish(queue string, data []byte) (string, error) {
	jobID, err := c.cli.Publish(queue, data, DefaultJobTTL, DefaultJobTries, 0)
	if err != nil {
		return "", fmt.Errorf("lmstfy publish failed: %w", err)
	}
	return jobID, nil
}
