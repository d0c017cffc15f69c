package lmstfyx

import (
	"context"

	"github.com/bitleak/lmstfy/client"
)

// Proc 业务处理函数（由 domains.GetProcess 生成，注入到 Processor）
type Proc func(ctx context.Context, job *client.Job) *JobResp

// JobRespStatus 消息处理结果状态
type JobRespStatus int

const (
	// JobRespStatusSuccess 处理完成（包括业务失败但已通知调用方），ACK 消息
	JobRespStatusSuccess JobRespStatus = iota
	// JobRespStatusBury 无法处理的消息，不 ACK，TTR 到期后进入死信队列
	JobRespStatusBury
)

// String 日志用
func (s JobRespStatus) String() string {
	switch s {
	case JobRespStatusSuccess:
		return "ack"
	case JobRespStatusBury:
		return "bury"
	default:
		return "unknown"
	}
}

// JobResp 消息处理结果
type JobResp struct {
	Action JobRespStatus
	Data   []byte // 标准响应 JSON，仅用于日志
}

// Ack 成功响应
func Ack(data []byte) *JobResp {
	return &JobResp{Action: JobRespStatusSuccess, Data: data}
}

// Bury 死信响应
func Bury() *JobResp {
	return &JobResp{Action: JobRespStatusBury}
}
