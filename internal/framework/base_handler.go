package framework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// BaseHandler 抽象基类
// 负责解析标准 Job 信封、包装标准响应，不包含业务流程控制
type BaseHandler struct {
	meta       *JobMeta
	bizPayload json.RawMessage // job.payload.data.data 部分
}

// Job 标准 Job 结构
type Job struct {
	Payload *JobPayload `json:"payload"`
}

// JobPayload Job 负载
type JobPayload struct {
	Data *JobPayloadData `json:"data"`
}

// JobPayloadData Job 元信息 + 业务数据
type JobPayloadData struct {
	RequestID  string          `json:"request_id"`
	ActionType string          `json:"action_type"`
	OrgID      string          `json:"org_id"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
}

// JobMeta Job 元信息
type JobMeta struct {
	RequestID  string `json:"request_id"`
	ActionType string `json:"action_type"`
	OrgID      string `json:"org_id"`
	ID         string `json:"id"`
}

// Response 标准响应结构
type Response struct {
	Error     interface{} `json:"error"`
	Result    interface{} `json:"result"`
	Processed bool        `json:"processed"`
	Meta      *JobMeta    `json:"meta,omitempty"`
}

// ParseJob 解析 lmstfy Job 标准结构
func ParseJob(rawData []byte) (*BaseHandler, error) {
	var job Job
	if err := json.Unmarshal(rawData, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job failed: %w", err)
	}
	if job.Payload == nil || job.Payload.Data == nil {
		return nil, errors.New("invalid job structure: payload.data is nil")
	}

	data := job.Payload.Data
	if data.ActionType == "" {
		return nil, errors.New("invalid job structure: action_type is empty")
	}

	return &BaseHandler{
		meta: &JobMeta{
			RequestID:  data.RequestID,
			ActionType: data.ActionType,
			OrgID:      data.OrgID,
			ID:         data.ID,
		},
		bizPayload: data.Data,
	}, nil
}

// DecodePayload 把业务数据解码到 v
func (b *BaseHandler) DecodePayload(v interface{}) error {
	if len(b.bizPayload) == 0 || string(b.bizPayload) == "null" {
		return errors.New("job payload data is empty")
	}
	if err := json.Unmarshal(b.bizPayload, v); err != nil {
		return fmt.Errorf("unmarshal business data failed: %w", err)
	}
	return nil
}

// WrapResponse 包装标准响应
func (b *BaseHandler) WrapResponse(ctx context.Context, output interface{}) ([]byte, error) {
	data, err := json.Marshal(&Response{
		Result:    output,
		Processed: true,
		Meta:      b.meta,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal response failed: %w", err)
	}
	return data, nil
}

// WrapErrorResponse 包装错误响应
func (b *BaseHandler) WrapErrorResponse(ctx context.Context, respErr error) ([]byte, error) {
	data, err := json.Marshal(&Response{
		Error:     respErr.Error(),
		Processed: false,
		Meta:      b.meta,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal error response failed: %w", err)
	}
	return data, nil
}

// Meta 获取 meta
func (b *BaseHandler) Meta() *JobMeta {
	return b.meta
}

// SetRequestID 补齐缺失的 request_id
func (b *BaseHandler) SetRequestID(id string) {
	b.meta.RequestID = id
}
