package anomaly

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TemplateWriter 确定性的说明文案（不依赖模型，测试与默认部署使用）
type TemplateWriter struct{}

// NewTemplateWriter 创建模板文案生成器
func NewTemplateWriter() *TemplateWriter {
	return &TemplateWriter{}
}

// Explain 实现 IssueWriter
func (w *TemplateWriter) Explain(ctx context.Context, threshold float64, orders []EnrichedOrder) ([]string, error) {
	limit := decimal.NewFromFloat(threshold)
	out := make([]string, 0, len(orders))
	for _, order := range orders {
		out = append(out, explain(limit, order))
	}
	return out, nil
}

func explain(threshold decimal.Decimal, order EnrichedOrder) string {
	driver := "high quantity × high price"
	if order.Quantity <= 1 {
		driver = "single high-priced item"
	}
	return fmt.Sprintf("Basket value %s exceeds threshold %s; %s (%d × %s %s).",
		FormatMoney(order.BasketValue()),
		FormatMoney(threshold),
		driver,
		order.Quantity,
		FormatMoney(order.PurchasePrice),
		order.ProductName,
	)
}

// FormatMoney 1250 → "$1,250.00"，按分四舍五入
func FormatMoney(v decimal.Decimal) string {
	v = v.Round(2)
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Abs()
	}
	whole, cents, _ := strings.Cut(v.StringFixed(2), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + "$" + b.String() + "." + cents
}
