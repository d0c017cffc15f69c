package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"basketwatch/pkg/errorutil"
)

// Response 统一响应结构
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

// Meta 元数据
type Meta struct {
	Code    int           `json:"code" example:"200"`
	Message string        `json:"message" example:"OK"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string `json:"path" example:"threshold"`
	Info string `json:"info" example:"threshold must be at least 0"`
}

// ErrorData 错误响应的 data 部分，调用方按 kind 区分失败原因
type ErrorData struct {
	Kind      errorutil.Kind `json:"kind"`
	Reason    string         `json:"reason,omitempty"`
	Retryable bool           `json:"retryable"`
	RequestID string         `json:"request_id,omitempty"`
}

// 每类错误对用户展示的文案互不相同，空结果不走这里
var kindMessages = map[errorutil.Kind]string{
	errorutil.KindInvalidInput:      "Invalid detection request",
	errorutil.KindDataUnavailable:   "Sales warehouse is unavailable, please retry later",
	errorutil.KindMalformedResponse: "Anomaly report could not be assembled from upstream data",
	errorutil.KindModelUnavailable:  "Explanation model is unavailable, please retry later",
	errorutil.KindTimeout:           "Detection did not finish in time",
	errorutil.KindCancelled:         "Detection was cancelled",
	errorutil.KindInternal:          "Internal server error",
}

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Meta: Meta{
			Code:    200,
			Message: "OK",
		},
		Data: data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:    httpCode,
			Message: message,
		},
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpCode int, message string, details []ErrorDetail) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:    httpCode,
			Message: message,
			Details: details,
		},
		Data: ErrorData{Kind: errorutil.KindInvalidInput},
	})
}

// FromError 按错误类别输出响应，HTTP 状态码取自 errorutil.Error.Code
func FromError(c *gin.Context, err error, requestID string) {
	e := errorutil.Wrap(err)

	code := e.Code
	if code < 400 || code > 599 {
		code = http.StatusInternalServerError
	}

	message, ok := kindMessages[e.Kind]
	if !ok {
		message = kindMessages[errorutil.KindInternal]
	}

	data := ErrorData{
		Kind:      e.Kind,
		Retryable: e.Retryable,
		RequestID: requestID,
	}
	// 内部错误不向调用方暴露细节
	if e.Kind != errorutil.KindInternal {
		data.Reason = e.Message
	}

	c.JSON(code, Response{
		Meta: Meta{
			Code:    code,
			Message: message,
		},
		Data: data,
	})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	FromError(c, errorutil.InvalidInput(message), "")
}

// BadRequestWithValidation 400 错误（带验证详情）
func BadRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, ErrorDetail{
				Path: fieldErr.Field(),
				Info: getValidationErrorMessage(fieldErr),
			})
		}
		ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details)
		return
	}

	BadRequest(c, err.Error())
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// getValidationErrorMessage 根据验证错误类型返回友好的错误消息
func getValidationErrorMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "required_without":
		return fieldErr.Field() + " is required when " + fieldErr.Param() + " is absent"
	case "gte", "min":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "lte", "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	default:
		return fieldErr.Field() + " is invalid"
	}
}
