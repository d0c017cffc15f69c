package warehouse

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"basketwatch/internal/model"
	"basketwatch/pkg/errorutil"
)

// Tables 事实表与维度表名称（可带 dataset 前缀）
type Tables struct {
	SalesFact   string
	ProductDim  string
	CustomerDim string
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate 表名只允许标识符，避免拼接 SQL 时被注入
func (t Tables) Validate() error {
	for _, name := range []string{t.SalesFact, t.ProductDim, t.CustomerDim} {
		if !tableNamePattern.MatchString(name) {
			return fmt.Errorf("invalid warehouse table name: %q", name)
		}
	}
	return nil
}

// Gateway 数仓只读访问（两个查询能力）
// *gorm.DB 并发安全，可在多次运行间共享
type Gateway struct {
	db     *gorm.DB
	tables Tables
}

// NewGateway 使用已建立的连接创建 Gateway
func NewGateway(db *gorm.DB, tables Tables) (*Gateway, error) {
	if db == nil {
		return nil, errors.New("warehouse db is nil")
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Gateway{db: db, tables: tables}, nil
}

// basketValueTolerance 数仓算出的 basket_value 与本地派生值允许的误差
// DECIMAL 列应完全一致，REAL 列（sqlite）会带二进制浮点误差
var basketValueTolerance = decimal.New(5, -3)

type orderRow struct {
	OrderID       string          `gorm:"column:order_id"`
	CustomerSK    string          `gorm:"column:customer_sk"`
	Quantity      int64           `gorm:"column:quantity"`
	ProductName   string          `gorm:"column:product_name"`
	PurchasePrice decimal.Decimal `gorm:"column:purchase_price"`
	BasketValue   decimal.Decimal `gorm:"column:basket_value"`
}

// toOrderRecord 核对数仓算出的 basket_value 后转换为 OrderRecord
func (row orderRow) toOrderRecord() (model.OrderRecord, error) {
	order := model.OrderRecord{
		OrderID:       row.OrderID,
		CustomerSK:    row.CustomerSK,
		Quantity:      row.Quantity,
		ProductName:   row.ProductName,
		PurchasePrice: row.PurchasePrice,
	}
	if order.BasketValue().Sub(row.BasketValue).Abs().GreaterThan(basketValueTolerance) {
		return model.OrderRecord{}, errorutil.MalformedResponse(fmt.Sprintf(
			"order %s: warehouse basket_value %s != %d × %s",
			row.OrderID, row.BasketValue, row.Quantity, row.PurchasePrice), nil)
	}
	return order, nil
}

type customerRow struct {
	CustomerSK  string `gorm:"column:customer_sk"`
	CompanyName string `gorm:"column:company_name"`
}

// FetchHighBasketOrders 查询篮子金额大于阈值的订单，按金额降序，最多 limit 条
// 没有符合条件的订单时返回空切片而不是错误
func (g *Gateway) FetchHighBasketOrders(ctx context.Context, threshold float64, limit int) ([]model.OrderRecord, error) {
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, errorutil.InvalidInput("threshold must be a number >= 0")
	}
	if limit <= 0 {
		return nil, errorutil.InvalidInput("limit must be > 0")
	}

	var rows []orderRow
	err := g.db.WithContext(ctx).
		Table(g.tables.SalesFact+" AS sales_fact").
		Select("sales_fact.order_id, sales_fact.customer_sk, sales_fact.quantity, " +
			"product_dim.product_name, product_dim.purchase_price, " +
			"(sales_fact.quantity * product_dim.purchase_price) AS basket_value").
		Joins("INNER JOIN " + g.tables.ProductDim + " AS product_dim ON sales_fact.product_sk = product_dim.product_sk").
		Where("(sales_fact.quantity * product_dim.purchase_price) > ?", threshold).
		Order("basket_value DESC").
		Order("sales_fact.order_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, classify("query high basket orders failed", err)
	}

	orders := make([]model.OrderRecord, 0, len(rows))
	for _, row := range rows {
		order, err := row.toOrderRecord()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, nil
}

// FetchCustomerNames 一次批量查询客户名称
// ids 为空时直接返回空 map，不发起查询（避免 IN () 语法错误）
// 维度表中不存在的 id 不会出现在结果里
func (g *Gateway) FetchCustomerNames(ctx context.Context, ids []string) (model.CustomerLookup, error) {
	lookup := make(model.CustomerLookup)
	ids = dedupe(ids)
	if len(ids) == 0 {
		return lookup, nil
	}

	var rows []customerRow
	err := g.db.WithContext(ctx).
		Table(g.tables.CustomerDim).
		Select("customer_sk, company_name").
		Where("customer_sk IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, classify("query customer names failed", err)
	}

	for _, row := range rows {
		lookup[row.CustomerSK] = row.CompanyName
	}

	return lookup, nil
}

// Ping 检查数仓连通性
func (g *Gateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return classify("get warehouse connection failed", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return classify("ping warehouse failed", err)
	}
	return nil
}

// classify 把底层错误归类为 DataUnavailable / Timeout / Cancelled
func classify(message string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorutil.Timeout(message, err)
	case errors.Is(err, context.Canceled):
		return errorutil.Cancelled(message, err)
	default:
		return errorutil.DataUnavailable(message, err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
