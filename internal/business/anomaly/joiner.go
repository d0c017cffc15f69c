package anomaly

import "basketwatch/internal/model"

// Enrich 用客户名称补全订单，保持输入顺序与数量不变
// 找不到的客户填 UNKNOWN
func Enrich(orders []model.OrderRecord, lookup model.CustomerLookup) []EnrichedOrder {
	enriched := make([]EnrichedOrder, 0, len(orders))
	for _, order := range orders {
		name, ok := lookup[order.CustomerSK]
		if !ok {
			name = model.UnknownCompany
		}
		enriched = append(enriched, EnrichedOrder{
			OrderRecord: order,
			CompanyName: name,
		})
	}
	return enriched
}

// DistinctCustomerSKs 按首次出现顺序去重
func DistinctCustomerSKs(orders []model.OrderRecord) []string {
	seen := make(map[string]struct{}, len(orders))
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		if _, ok := seen[order.CustomerSK]; ok {
			continue
		}
		seen[order.CustomerSK] = struct{}{}
		ids = append(ids, order.CustomerSK)
	}
	return ids
}
