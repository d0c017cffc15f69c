package model

import "github.com/shopspring/decimal"

// OrderRecord 数仓中的一条订单行（事实表 join 商品维度）
// 只读值对象，BasketValue 由 Quantity × PurchasePrice 派生，不能单独设置
type OrderRecord struct {
	OrderID       string          `json:"order_id"`
	CustomerSK    string          `json:"customer_sk"`
	Quantity      int64           `json:"quantity"`
	ProductName   string          `json:"product_name"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

// BasketValue 篮子金额 = 数量 × 单价，十进制精确计算
func (o OrderRecord) BasketValue() decimal.Decimal {
	return o.PurchasePrice.Mul(decimal.NewFromInt(o.Quantity))
}

// Exceeds 篮子金额是否严格大于阈值
func (o OrderRecord) Exceeds(threshold float64) bool {
	return o.BasketValue().GreaterThan(decimal.NewFromFloat(threshold))
}

// CustomerLookup customer_sk → company_name
type CustomerLookup map[string]string
