package anomaly

import (
	"context"

	"basketwatch/internal/model"
)

// Gateway 数仓查询能力（由 pkg/infra/warehouse 实现，测试可替换）
type Gateway interface {
	FetchHighBasketOrders(ctx context.Context, threshold float64, limit int) ([]model.OrderRecord, error)
	FetchCustomerNames(ctx context.Context, ids []string) (model.CustomerLookup, error)
}

// IssueWriter 为每个订单生成一段简短的异常说明
// 每次运行最多调用一次，返回值与 orders 一一对应
type IssueWriter interface {
	Explain(ctx context.Context, threshold float64, orders []EnrichedOrder) ([]string, error)
}

// EnrichedOrder 补全了客户名称的订单
type EnrichedOrder struct {
	model.OrderRecord
	CompanyName string
}
