package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/pricing"
	"go-pos-inventory/internal/repository"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultTopItems = 5

type DashboardService interface {
	// Summary aggregates sales created in [from, to).
	Summary(ctx context.Context, from, to time.Time, topN int) (*model.SalesSummary, error)
	// Daily returns one point per calendar day in [from, to), zero-filled.
	Daily(ctx context.Context, from, to time.Time) ([]model.DailySales, error)
	StockOverview(ctx context.Context) (*model.StockOverview, error)
}

type dashboardService struct {
	sales  repository.SaleRepository
	items  repository.InventoryRepository
	loc    *time.Location
	logger *zap.Logger
}

func NewDashboardService(sales repository.SaleRepository, items repository.InventoryRepository, loc *time.Location, logger *zap.Logger) DashboardService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dashboardService{sales: sales, items: items, loc: loc, logger: logger}
}

func (s *dashboardService) Summary(ctx context.Context, from, to time.Time, topN int) (*model.SalesSummary, error) {
	if topN <= 0 {
		topN = defaultTopItems
	}
	sales, err := s.sales.FindInRange(ctx, from, to, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return summarize(sales, from, to, topN), nil
}

func summarize(sales []model.Sale, from, to time.Time, topN int) *model.SalesSummary {
	sum := &model.SalesSummary{
		From:          from,
		To:            to,
		SaleCount:     len(sales),
		Revenue:       decimal.Zero,
		DiscountTotal: decimal.Zero,
		TaxTotal:      decimal.Zero,
		AverageTicket: decimal.Zero,
		MedianTicket:  decimal.Zero,
		ByPayment:     map[model.PaymentMethod]decimal.Decimal{},
		TopItems:      []model.TopItem{},
	}

	tickets := make(stats.Float64Data, 0, len(sales))
	top := map[string]*model.TopItem{}
	for _, sale := range sales {
		sum.Revenue = sum.Revenue.Add(sale.Total)
		sum.DiscountTotal = sum.DiscountTotal.Add(sale.DiscountAmount)
		sum.TaxTotal = sum.TaxTotal.Add(sale.TaxAmount)
		sum.ByPayment[sale.PaymentMethod] = sum.ByPayment[sale.PaymentMethod].Add(sale.Total)
		tickets = append(tickets, sale.Total.InexactFloat64())

		for _, l := range sale.Lines {
			key := l.ItemID.String()
			t, ok := top[key]
			if !ok {
				t = &model.TopItem{ItemID: key, Name: l.Name, Revenue: decimal.Zero}
				top[key] = t
			}
			t.Quantity += l.Quantity
			t.Revenue = t.Revenue.Add(l.LineTotal)
		}
	}

	if len(tickets) > 0 {
		if mean, err := stats.Mean(tickets); err == nil {
			sum.AverageTicket = pricing.Round(decimal.NewFromFloat(mean))
		}
		if median, err := stats.Median(tickets); err == nil {
			sum.MedianTicket = pricing.Round(decimal.NewFromFloat(median))
		}
	}

	items := make([]model.TopItem, 0, len(top))
	for _, t := range top {
		items = append(items, *t)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Quantity != items[j].Quantity {
			return items[i].Quantity > items[j].Quantity
		}
		if !items[i].Revenue.Equal(items[j].Revenue) {
			return items[i].Revenue.GreaterThan(items[j].Revenue)
		}
		return items[i].Name < items[j].Name
	})
	if len(items) > topN {
		items = items[:topN]
	}
	sum.TopItems = items
	return sum
}

func (s *dashboardService) Daily(ctx context.Context, from, to time.Time) ([]model.DailySales, error) {
	sales, err := s.sales.FindInRange(ctx, from, to, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	byDay := map[string]*model.DailySales{}
	for _, sale := range sales {
		key := sale.CreatedAt.In(s.loc).Format(time.DateOnly)
		d, ok := byDay[key]
		if !ok {
			d = &model.DailySales{Date: key, Revenue: decimal.Zero}
			byDay[key] = d
		}
		d.SaleCount++
		d.Revenue = d.Revenue.Add(sale.Total)
	}

	var out []model.DailySales
	start := from.In(s.loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc)
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		if d, ok := byDay[key]; ok {
			out = append(out, *d)
			continue
		}
		out = append(out, model.DailySales{Date: key, Revenue: decimal.Zero})
	}
	return out, nil
}

func (s *dashboardService) StockOverview(ctx context.Context) (*model.StockOverview, error) {
	items, err := s.items.FindAll(ctx, repository.InventoryFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := &model.StockOverview{
		TotalItems: len(items),
		ByAlertLevel: map[model.AlertLevel]int{
			model.AlertCritical: 0,
			model.AlertHigh:     0,
			model.AlertMedium:   0,
			model.AlertNone:     0,
		},
		CostValuation:   decimal.Zero,
		RetailValuation: decimal.Zero,
	}
	for i := range items {
		item := &items[i]
		out.ByAlertLevel[item.AlertLevel()]++
		qty := decimal.NewFromInt(int64(item.Quantity))
		out.CostValuation = out.CostValuation.Add(item.CostPrice.Mul(qty))
		out.RetailValuation = out.RetailValuation.Add(item.UnitPrice.Mul(qty))
	}
	return out, nil
}
