package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"basketwatch/internal/model"
	"basketwatch/pkg/errorutil"
)

// PubSub Redis 发布/订阅客户端
// API 侧订阅检测结果频道，Worker 侧发布检测完成通知
type PubSub struct {
	client *redis.Client
}

// NewPubSub 创建 PubSub 实例，并测试连接
func NewPubSub(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PubSub{client: client}, nil
}

// PublishNotification 发布检测完成通知到 detection:result:{request_id}
func (p *PubSub) PublishNotification(ctx context.Context, notification *model.DetectionNotification) error {
	if notification == nil || notification.RequestID == "" {
		return errors.New("notification request_id is required")
	}

	msgJSON, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := p.client.Publish(ctx, model.ResultChannel(notification.RequestID), msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// Subscription 一次 Smart Wait 的订阅
type Subscription struct {
	sub     *redis.PubSub
	channel string
}

// SubscribeResult 订阅检测结果频道
// 返回前已收到 Redis 的订阅确认，调用方在此之后再投递任务，不会漏掉通知
func (p *PubSub) SubscribeResult(ctx context.Context, requestID string) (*Subscription, error) {
	channel := model.ResultChannel(requestID)
	sub := p.client.Subscribe(ctx, channel)

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe %s: %w", channel, err)
	}

	return &Subscription{sub: sub, channel: channel}, nil
}

// Wait 等待通知，超时返回 Timeout 错误
func (s *Subscription) Wait(ctx context.Context, timeout time.Duration) (*model.DetectionNotification, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case msg, ok := <-s.sub.Channel():
		if !ok {
			return nil, fmt.Errorf("subscription %s closed", s.channel)
		}
		var notification model.DetectionNotification
		if err := json.Unmarshal([]byte(msg.Payload), &notification); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
		}
		return &notification, nil

	case <-timeoutCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, errorutil.Cancelled("wait for detection result cancelled", ctx.Err())
		}
		return nil, errorutil.Timeout(fmt.Sprintf("no detection result within %s", timeout), timeoutCtx.Err())
	}
}

// Close 取消订阅
func (s *Subscription) Close() error {
	return s.sub.Close()
}

// Ping 检查连接
func (p *PubSub) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (p *PubSub) Close() error {
	return p.client.Close()
}
