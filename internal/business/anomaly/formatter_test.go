package anomaly

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basketwatch/internal/model"
	"basketwatch/pkg/errorutil"
)

func enrichedSample() []EnrichedOrder {
	return Enrich(sampleGateway().orders[:3], model.CustomerLookup{"C1": "Acme Corp"})
}

func TestFormat(t *testing.T) {
	f := NewFormatter(nil)

	report, err := f.Format(context.Background(), enrichedSample(), 450)
	require.NoError(t, err)
	require.Len(t, report, 3)

	assert.Equal(t, model.AnomalyRecord{
		OrderID:     "O-1",
		CompanyName: "Acme Corp",
		BasketValue: decimal.NewFromInt(1250),
		Issues: []string{
			"Basket value $1,250.00 exceeds threshold $450.00; high quantity × high price (5 × $250.00 Espresso Machine).",
		},
	}, report[0])
}

func TestFormatEmptySkipsWriter(t *testing.T) {
	f := NewFormatter(staticWriter{err: errorutil.ModelUnavailable("should not be called", nil)})

	report, err := f.Format(context.Background(), nil, 450)
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Empty(t, report)
}

func TestFormatRejectsBrokenInvariants(t *testing.T) {
	f := NewFormatter(nil)
	orders := enrichedSample()

	// 升序输入
	reversed := []EnrichedOrder{orders[2], orders[0]}
	_, err := f.Format(context.Background(), reversed, 450)
	assert.True(t, errorutil.Is(err, errorutil.KindMalformedResponse))

	// 金额未超过阈值
	_, err = f.Format(context.Background(), orders, 600)
	assert.True(t, errorutil.Is(err, errorutil.KindMalformedResponse))

	// 重复 order_id
	_, err = f.Format(context.Background(), []EnrichedOrder{orders[0], orders[0]}, 450)
	assert.True(t, errorutil.Is(err, errorutil.KindMalformedResponse))
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":           "$0.00",
		"12.5":        "$12.50",
		"450":         "$450.00",
		"450.45":      "$450.45",
		"1250":        "$1,250.00",
		"1234567.891": "$1,234,567.89",
		"2.105":       "$2.11",
		"-1000":       "-$1,000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestTemplateSingleItem(t *testing.T) {
	orders := []EnrichedOrder{{
		OrderRecord: model.OrderRecord{OrderID: "O-9", Quantity: 1, ProductName: "Oven", PurchasePrice: decimal.NewFromInt(900)},
		CompanyName: "Initech",
	}}
	out, err := NewTemplateWriter().Explain(context.Background(), 450, orders)
	require.NoError(t, err)
	assert.Equal(t, []string{"Basket value $900.00 exceeds threshold $450.00; single high-priced item (1 × $900.00 Oven)."}, out)
}
