package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basketwatch/internal/model"
	"basketwatch/pkg/errorutil"
	"basketwatch/pkg/logger"
)

func newTestOrchestrator(gw Gateway, opts Options) *Orchestrator {
	return NewOrchestrator(gw, NewFormatter(NewTemplateWriter()), opts, logger.NewNopLogger())
}

func TestRunSingleHighValueOrder(t *testing.T) {
	gw := &fakeGateway{
		orders: []model.OrderRecord{
			{OrderID: "O-1", CustomerSK: "C1", Quantity: 5, ProductName: "Espresso Machine", PurchasePrice: decimal.NewFromInt(250)},
		},
		names: model.CustomerLookup{"C1": "Acme Corp"},
	}
	o := newTestOrchestrator(gw, Options{})

	res, err := o.Run(context.Background(), Request{Threshold: 450})
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []State{StateIdle, StateFetchingOrders, StateFetchingNames, StateFormatting, StateDone}, res.Trail)
	assert.Equal(t, 4, res.Turns)
	assert.Equal(t, DefaultOrderLimit, res.Limit)

	require.Len(t, res.Report, 1)
	rec := res.Report[0]
	assert.Equal(t, "O-1", rec.OrderID)
	assert.Equal(t, "Acme Corp", rec.CompanyName)
	assert.Equal(t, "1250", rec.BasketValue.String())
	require.Len(t, rec.Issues, 1)
	assert.Contains(t, rec.Issues[0], "$1,250.00")

	raw, err := json.Marshal(res.Report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"company_name":"Acme Corp"`)
	assert.Contains(t, string(raw), `"basket_value":1250`)
}

func TestRunNoOrdersIsEmptyNotError(t *testing.T) {
	gw := sampleGateway()
	o := newTestOrchestrator(gw, Options{})

	res, err := o.Run(context.Background(), Request{Threshold: 5000})
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []State{StateIdle, StateFetchingOrders, StateDone}, res.Trail)
	assert.True(t, res.Report.IsEmpty())

	raw, err := json.Marshal(res.Report)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	assert.Equal(t, int64(1), atomic.LoadInt64(&gw.orderCalls))
	assert.Zero(t, atomic.LoadInt64(&gw.nameCalls))
}

func TestRunUnknownCustomer(t *testing.T) {
	gw := sampleGateway()
	o := newTestOrchestrator(gw, Options{})

	res, err := o.Run(context.Background(), Request{Threshold: 450})
	require.NoError(t, err)

	require.Len(t, res.Report, 3)
	assert.Equal(t, "O-3", res.Report[1].OrderID)
	assert.Equal(t, model.UnknownCompany, res.Report[1].CompanyName)
	assert.Equal(t, "Acme Corp", res.Report[2].CompanyName)
}

func TestRunWarehouseUnavailable(t *testing.T) {
	gw := sampleGateway()
	gw.ordersErr = errors.New("dial tcp: connection refused")
	o := newTestOrchestrator(gw, Options{})

	res, err := o.Run(context.Background(), Request{Threshold: 450})
	require.Error(t, err)
	assert.True(t, errorutil.Is(err, errorutil.KindDataUnavailable), "got %v", err)

	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Nil(t, res.Report)
	assert.Zero(t, atomic.LoadInt64(&gw.nameCalls))
}

func TestRunNameLookupFailureDiscardsOrders(t *testing.T) {
	gw := sampleGateway()
	gw.namesErr = errorutil.DataUnavailable("customer dim offline", nil)
	o := newTestOrchestrator(gw, Options{})

	res, err := o.Run(context.Background(), Request{Threshold: 450})
	assert.True(t, errorutil.Is(err, errorutil.KindDataUnavailable))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []State{StateIdle, StateFetchingOrders, StateFetchingNames, StateFailed}, res.Trail)
	assert.Nil(t, res.Report)
}

func TestRunSinglePass(t *testing.T) {
	gw := sampleGateway()
	o := newTestOrchestrator(gw, Options{})

	_, err := o.Run(context.Background(), Request{Threshold: 450})
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&gw.orderCalls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&gw.nameCalls))
	// C1 出现两次，只查一次
	assert.Equal(t, []string{"C1", "C9"}, gw.lastIDs)
}

func TestRunIdempotent(t *testing.T) {
	o := newTestOrchestrator(sampleGateway(), Options{})

	first, err := o.Run(context.Background(), Request{Threshold: 450})
	require.NoError(t, err)
	second, err := o.Run(context.Background(), Request{Threshold: 450})
	require.NoError(t, err)

	assert.Equal(t, first.Report, second.Report)
}

func TestRunReportInvariants(t *testing.T) {
	o := newTestOrchestrator(sampleGateway(), Options{})

	for _, threshold := range []float64{0, 49.99, 50, 450, 499.99, 500, 1249.99, 1250} {
		res, err := o.Run(context.Background(), Request{Threshold: threshold})
		require.NoError(t, err)
		for i, rec := range res.Report {
			assert.True(t, rec.BasketValue.GreaterThan(decimal.NewFromFloat(threshold)), rec.OrderID)
			if i > 0 {
				assert.True(t, rec.BasketValue.LessThanOrEqual(res.Report[i-1].BasketValue), rec.OrderID)
			}
		}
	}
}

func TestRunLimit(t *testing.T) {
	o := newTestOrchestrator(sampleGateway(), Options{OrderLimit: 5})

	res, err := o.Run(context.Background(), Request{Threshold: 0})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Limit)
	assert.Len(t, res.Report, 4)

	res, err = o.Run(context.Background(), Request{Threshold: 0, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Report, 2)
}

func TestRunInvalidThreshold(t *testing.T) {
	gw := sampleGateway()
	o := newTestOrchestrator(gw, Options{MaxThreshold: 400})

	for _, threshold := range []float64{-1, math.NaN(), math.Inf(1), 401} {
		res, err := o.Run(context.Background(), Request{Threshold: threshold})
		assert.Nil(t, res)
		assert.True(t, errorutil.Is(err, errorutil.KindInvalidInput), "threshold %v: %v", threshold, err)
	}
	assert.Zero(t, atomic.LoadInt64(&gw.orderCalls))

	_, err := o.Run(context.Background(), Request{Threshold: 400})
	assert.NoError(t, err)
}

func TestRunTurnBudgetExhausted(t *testing.T) {
	gw := sampleGateway()
	o := newTestOrchestrator(gw, Options{MaxTurns: 2})

	res, err := o.Run(context.Background(), Request{Threshold: 450})
	assert.True(t, errorutil.Is(err, errorutil.KindTimeout), "got %v", err)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []State{StateIdle, StateFetchingOrders, StateFetchingNames, StateFailed}, res.Trail)
	assert.Nil(t, res.Report)
}

func TestRunDeadline(t *testing.T) {
	gw := sampleGateway()
	gw.block = make(chan struct{})
	o := newTestOrchestrator(gw, Options{RunTimeout: 20 * time.Millisecond})

	res, err := o.Run(context.Background(), Request{Threshold: 450})
	assert.True(t, errorutil.Is(err, errorutil.KindTimeout), "got %v", err)
	assert.Equal(t, StateFailed, res.State)
	assert.Zero(t, atomic.LoadInt64(&gw.nameCalls))
}

func TestRunCancelled(t *testing.T) {
	gw := sampleGateway()
	o := newTestOrchestrator(gw, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.Run(ctx, Request{Threshold: 450})
	assert.True(t, errorutil.Is(err, errorutil.KindCancelled), "got %v", err)
	assert.Equal(t, StateFailed, res.State)
	assert.Zero(t, atomic.LoadInt64(&gw.orderCalls))
}

// staticWriter 返回固定内容，用于检查格式化失败路径
type staticWriter struct {
	out []string
	err error
}

func (w staticWriter) Explain(ctx context.Context, threshold float64, orders []EnrichedOrder) ([]string, error) {
	return w.out, w.err
}

func TestRunWriterFailures(t *testing.T) {
	cases := []struct {
		name   string
		writer IssueWriter
		kind   errorutil.Kind
	}{
		{"short", staticWriter{out: []string{"only one"}}, errorutil.KindMalformedResponse},
		{"blank", staticWriter{out: []string{"a", " ", "c"}}, errorutil.KindMalformedResponse},
		{"unavailable", staticWriter{err: errorutil.ModelUnavailable("503 from model", nil)}, errorutil.KindModelUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrchestrator(sampleGateway(), NewFormatter(tc.writer), Options{}, logger.NewNopLogger())
			res, err := o.Run(context.Background(), Request{Threshold: 450})
			assert.True(t, errorutil.Is(err, tc.kind), "got %v", err)
			assert.Equal(t, StateFailed, res.State)
		})
	}
}

func TestRunDecimalBasketValues(t *testing.T) {
	gw := &fakeGateway{
		orders: []model.OrderRecord{
			{OrderID: "O-6", CustomerSK: "C1", Quantity: 7, ProductName: "Kettle", PurchasePrice: decimal.RequireFromString("64.35")},
			{OrderID: "O-A", CustomerSK: "C1", Quantity: 3, ProductName: "Sticker", PurchasePrice: decimal.RequireFromString("0.70")},
			{OrderID: "O-B", CustomerSK: "C2", Quantity: 7, ProductName: "Pin", PurchasePrice: decimal.RequireFromString("0.30")},
		},
		names: model.CustomerLookup{"C1": "Acme Corp"},
	}
	o := newTestOrchestrator(gw, Options{})

	// 3 × 0.70 与 7 × 0.30 金额相同，按 order_id 排列不能被当成升序
	res, err := o.Run(context.Background(), Request{Threshold: 1})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	require.Len(t, res.Report, 3)
	assert.True(t, res.Report[1].BasketValue.Equal(res.Report[2].BasketValue))
	assert.Contains(t, res.Report[0].Issues[0], "Basket value $450.45 exceeds threshold $1.00")

	raw, err := json.Marshal(res.Report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"basket_value":450.45`)
	assert.Contains(t, string(raw), `"order_id":"O-A","company_name":"Acme Corp","issues":`)
	assert.Equal(t, 2, strings.Count(string(raw), `"basket_value":2.1}`))

	var decoded model.AnomalyReport
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "450.45", decoded[0].BasketValue.String())
}
