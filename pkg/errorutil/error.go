package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别（对外可见的失败标签）
type Kind string

const (
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindDataUnavailable   Kind = "DATA_UNAVAILABLE"
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
	KindModelUnavailable  Kind = "MODEL_UNAVAILABLE"
	KindTimeout           Kind = "TIMEOUT"
	KindCancelled         Kind = "CANCELLED"
	KindInternal          Kind = "INTERNAL"
)

// Error 错误结构（包含类别与可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`

	cause error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code int, kind Kind, retryable bool, message string, cause error) *Error {
	e := &Error{
		Code:      code,
		Kind:      kind,
		Message:   message,
		Retryable: retryable,
		cause:     cause,
	}
	if cause != nil {
		e.DevDetails = fmt.Sprintf("%+v", cause)
	}
	return e
}

// InvalidInput 参数错误（阈值为负、超过上限、limit 非法等）
func InvalidInput(message string) *Error {
	return newError(http.StatusBadRequest, KindInvalidInput, false, message, nil)
}

// DataUnavailable 数仓不可达或查询被拒绝
func DataUnavailable(message string, cause error) *Error {
	return newError(http.StatusServiceUnavailable, KindDataUnavailable, true, message, cause)
}

// MalformedResponse 生成步骤的输出不符合预期的数组结构
func MalformedResponse(message string, cause error) *Error {
	return newError(http.StatusBadGateway, KindMalformedResponse, false, message, cause)
}

// ModelUnavailable 模型服务调用失败（网络、鉴权、限流）
func ModelUnavailable(message string, cause error) *Error {
	return newError(http.StatusBadGateway, KindModelUnavailable, true, message, cause)
}

// Timeout 轮次预算耗尽或运行超过截止时间
func Timeout(message string, cause error) *Error {
	return newError(http.StatusGatewayTimeout, KindTimeout, true, message, cause)
}

// Cancelled 调用方放弃本次运行
func Cancelled(message string, cause error) *Error {
	return newError(499, KindCancelled, false, message, cause)
}

// Wrap 包装错误（已是 Error 则原样返回）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout("run deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return Cancelled("run cancelled", err)
	}

	// 默认为不可重试的内部错误
	return &Error{
		Code:       http.StatusInternalServerError,
		Kind:       KindInternal,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
		cause:      err,
	}
}

// KindOf 返回错误类别，nil 返回空串
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return Wrap(err).Kind
}

// Is 判断错误是否属于指定类别
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
