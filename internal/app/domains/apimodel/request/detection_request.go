package request

// CreateDetectionRequest 发起一次篮子金额异常检测
// threshold 与 instruction 二选一，同时提供时以 threshold 为准
type CreateDetectionRequest struct {
	Threshold   *float64 `json:"threshold" binding:"omitempty,gte=0" example:"450"`
	Instruction string   `json:"instruction" binding:"omitempty,max=500" example:"detect unusual basket values greater than 450."`
	Limit       int      `json:"limit" binding:"omitempty,min=1,max=1000" example:"50"`
}
