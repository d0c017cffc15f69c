package anomaly

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"basketwatch/internal/model"
)

// fakeGateway 内存数仓，记录调用次数
type fakeGateway struct {
	orders    []model.OrderRecord
	names     model.CustomerLookup
	ordersErr error
	namesErr  error

	// block 不为 nil 时 FetchHighBasketOrders 会等待 ctx 结束
	block chan struct{}

	orderCalls int64
	nameCalls  int64
	lastIDs    []string
}

func (f *fakeGateway) FetchHighBasketOrders(ctx context.Context, threshold float64, limit int) ([]model.OrderRecord, error) {
	atomic.AddInt64(&f.orderCalls, 1)
	if f.block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.block:
		}
	}
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}

	out := make([]model.OrderRecord, 0, len(f.orders))
	for _, o := range f.orders {
		if o.Exceeds(threshold) {
			out = append(out, o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeGateway) FetchCustomerNames(ctx context.Context, ids []string) (model.CustomerLookup, error) {
	atomic.AddInt64(&f.nameCalls, 1)
	f.lastIDs = ids
	if f.namesErr != nil {
		return nil, f.namesErr
	}
	out := make(model.CustomerLookup)
	for _, id := range ids {
		if name, ok := f.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

// sampleGateway 已按 basket_value 降序排好的样例数据
func sampleGateway() *fakeGateway {
	return &fakeGateway{
		orders: []model.OrderRecord{
			{OrderID: "O-1", CustomerSK: "C1", Quantity: 5, ProductName: "Espresso Machine", PurchasePrice: decimal.NewFromInt(250)},
			{OrderID: "O-3", CustomerSK: "C9", Quantity: 6, ProductName: "Grinder", PurchasePrice: decimal.NewFromInt(90)},
			{OrderID: "O-4", CustomerSK: "C1", Quantity: 2, ProductName: "Espresso Machine", PurchasePrice: decimal.NewFromInt(250)},
			{OrderID: "O-2", CustomerSK: "C2", Quantity: 4, ProductName: "Coffee Beans", PurchasePrice: decimal.RequireFromString("12.5")},
		},
		names: model.CustomerLookup{"C1": "Acme Corp", "C2": "Globex"},
	}
}
