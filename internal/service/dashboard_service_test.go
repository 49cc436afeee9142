package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
)

func saleFixture(total string, method model.PaymentMethod, lines ...model.SaleLine) model.Sale {
	return model.Sale{
		PaymentMethod:  method,
		Total:          decimal.RequireFromString(total),
		DiscountAmount: decimal.NewFromInt(1),
		TaxAmount:      decimal.NewFromInt(2),
		Lines:          lines,
	}
}

func TestSummarize(t *testing.T) {
	rice, milk := uuid.New(), uuid.New()
	sales := []model.Sale{
		saleFixture("10", model.PaymentCash,
			model.SaleLine{ItemID: rice, Name: "Rice", Quantity: 2, LineTotal: decimal.NewFromInt(8)}),
		saleFixture("30", model.PaymentOnline,
			model.SaleLine{ItemID: milk, Name: "Milk", Quantity: 1, LineTotal: decimal.NewFromInt(30)}),
		saleFixture("101", model.PaymentCash,
			model.SaleLine{ItemID: rice, Name: "Rice", Quantity: 5, LineTotal: decimal.NewFromInt(20)},
			model.SaleLine{ItemID: milk, Name: "Milk", Quantity: 1, LineTotal: decimal.NewFromInt(81)}),
	}

	sum := summarize(sales, time.Time{}, time.Time{}, 1)

	assert.Equal(t, 3, sum.SaleCount)
	assert.Equal(t, "141", sum.Revenue.String())
	assert.Equal(t, "3", sum.DiscountTotal.String())
	assert.Equal(t, "6", sum.TaxTotal.String())
	assert.Equal(t, "47", sum.AverageTicket.String())
	assert.Equal(t, "30", sum.MedianTicket.String())
	assert.Equal(t, "111", sum.ByPayment[model.PaymentCash].String())
	assert.Equal(t, "30", sum.ByPayment[model.PaymentOnline].String())
	require.Len(t, sum.TopItems, 1)
	assert.Equal(t, "Rice", sum.TopItems[0].Name)
	assert.Equal(t, 7, sum.TopItems[0].Quantity)
	assert.Equal(t, "28", sum.TopItems[0].Revenue.String())
}

func TestSummarizeEmpty(t *testing.T) {
	sum := summarize(nil, time.Time{}, time.Time{}, 5)
	assert.Zero(t, sum.SaleCount)
	assert.True(t, sum.AverageTicket.IsZero())
	assert.True(t, sum.MedianTicket.IsZero())
	assert.Empty(t, sum.TopItems)
}

func TestDashboardDailyAndStock(t *testing.T) {
	db := setupTestDB(t)
	sales := newTestSaleService(t, db, nil)
	a := seedItem(t, db, "A", "10", 5, 2)
	seedItem(t, db, "B", "4", 0, 2)

	for i := 0; i < 2; i++ {
		_, err := sales.ProcessSale(context.Background(), SaleRequest{
			Lines:         []model.CartLine{line(a, "10", 1)},
			PaymentMethod: model.PaymentCash,
			TaxPercent:    pct("0"),
		}, cashier)
		require.NoError(t, err)
	}

	dash := NewDashboardService(repository.NewSaleRepo(db), repository.NewInventoryRepo(db), time.UTC, nil)

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days, err := dash.Daily(context.Background(), today.AddDate(0, 0, -2), today.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Zero(t, days[0].SaleCount)
	assert.Equal(t, today.Format(time.DateOnly), days[2].Date)
	assert.Equal(t, 2, days[2].SaleCount)
	assert.Equal(t, "20", days[2].Revenue.String())

	stock, err := dash.StockOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stock.TotalItems)
	assert.Equal(t, 1, stock.ByAlertLevel[model.AlertCritical])
	assert.Equal(t, 1, stock.ByAlertLevel[model.AlertNone])
	assert.Equal(t, "30", stock.RetailValuation.String())
	assert.Equal(t, "15", stock.CostValuation.String())
}
