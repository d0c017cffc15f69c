package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// UnknownCompany 维度表中找不到客户时的占位名称
const UnknownCompany = "UNKNOWN"

// AnomalyRecord 单条异常记录（最终输出单元）
type AnomalyRecord struct {
	OrderID     string          `json:"order_id"`
	CompanyName string          `json:"company_name"`
	BasketValue decimal.Decimal `json:"basket_value"`
	Issues      []string        `json:"issues"`
}

// MarshalJSON basket_value 输出为 JSON 数字（decimal 默认输出带引号的字符串）
func (r AnomalyRecord) MarshalJSON() ([]byte, error) {
	type record AnomalyRecord
	return json.Marshal(struct {
		record
		BasketValue json.Number `json:"basket_value"`
	}{
		record:      record(r),
		BasketValue: json.Number(r.BasketValue.String()),
	})
}

// AnomalyReport 一次运行的异常报告，按 basket_value 非递增排列
type AnomalyReport []AnomalyRecord

// MarshalJSON 空报告输出 []，与错误严格区分
func (r AnomalyReport) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]AnomalyRecord(r))
}

// IsEmpty 是否没有任何异常
func (r AnomalyReport) IsEmpty() bool {
	return len(r) == 0
}
