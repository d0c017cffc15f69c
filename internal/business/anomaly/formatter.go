package anomaly

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"basketwatch/internal/model"
	"basketwatch/pkg/errorutil"
)

// Formatter 把补全后的订单转换成异常记录
type Formatter struct {
	writer IssueWriter
}

// NewFormatter 创建 Formatter，writer 为 nil 时使用确定性的模板文案
func NewFormatter(writer IssueWriter) *Formatter {
	if writer == nil {
		writer = NewTemplateWriter()
	}
	return &Formatter{writer: writer}
}

// Format 每个订单生成一条 AnomalyRecord，issues 只含一条说明
// 输入为空时返回空报告，不调用 writer
func (f *Formatter) Format(ctx context.Context, orders []EnrichedOrder, threshold float64) (model.AnomalyReport, error) {
	report := make(model.AnomalyReport, 0, len(orders))
	if len(orders) == 0 {
		return report, nil
	}

	explanations, err := f.writer.Explain(ctx, threshold, orders)
	if err != nil {
		return nil, err
	}
	if len(explanations) != len(orders) {
		return nil, errorutil.MalformedResponse(
			fmt.Sprintf("expected %d explanations, got %d", len(orders), len(explanations)), nil)
	}

	for i, order := range orders {
		issue := strings.TrimSpace(explanations[i])
		if issue == "" {
			return nil, errorutil.MalformedResponse(
				fmt.Sprintf("empty explanation for order %s", order.OrderID), nil)
		}
		report = append(report, model.AnomalyRecord{
			OrderID:     order.OrderID,
			CompanyName: order.CompanyName,
			BasketValue: order.BasketValue(),
			Issues:      []string{issue},
		})
	}

	if err := CheckReport(report, threshold); err != nil {
		return nil, err
	}

	return report, nil
}

// CheckReport 校验报告不变量：金额大于阈值、非递增、order_id 不重复
func CheckReport(report model.AnomalyReport, threshold float64) error {
	limit := decimal.NewFromFloat(threshold)
	seen := make(map[string]struct{}, len(report))
	for i, record := range report {
		if record.BasketValue.Cmp(limit) <= 0 {
			return errorutil.MalformedResponse(
				fmt.Sprintf("order %s basket value %s does not exceed threshold %s",
					record.OrderID, record.BasketValue, limit), nil)
		}
		if i > 0 && record.BasketValue.Cmp(report[i-1].BasketValue) > 0 {
			return errorutil.MalformedResponse(
				fmt.Sprintf("order %s breaks descending basket value order", record.OrderID), nil)
		}
		if _, ok := seen[record.OrderID]; ok {
			return errorutil.MalformedResponse(
				fmt.Sprintf("duplicate order_id %s", record.OrderID), nil)
		}
		seen[record.OrderID] = struct{}{}
		if len(record.Issues) == 0 {
			return errorutil.MalformedResponse(
				fmt.Sprintf("order %s has no issues", record.OrderID), nil)
		}
	}
	return nil
}
