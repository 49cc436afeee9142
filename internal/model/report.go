package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary aggregates the sales of a period. It is computed in Go from the
// sales collection rather than by the database.
type SalesSummary struct {
	From          time.Time                         `json:"from"`
	To            time.Time                         `json:"to"`
	SaleCount     int                               `json:"sale_count"`
	Revenue       decimal.Decimal                   `json:"revenue"`
	DiscountTotal decimal.Decimal                   `json:"discount_total"`
	TaxTotal      decimal.Decimal                   `json:"tax_total"`
	AverageTicket decimal.Decimal                   `json:"average_ticket"`
	MedianTicket  decimal.Decimal                   `json:"median_ticket"`
	ByPayment     map[PaymentMethod]decimal.Decimal `json:"by_payment"`
	TopItems      []TopItem                         `json:"top_items"`
}

// TopItem is a best seller entry.
type TopItem struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// DailySales is one point of the revenue chart.
type DailySales struct {
	Date      string          `json:"date"`
	SaleCount int             `json:"sale_count"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// StockOverview counts inventory per alert level.
type StockOverview struct {
	TotalItems      int                `json:"total_items"`
	ByAlertLevel    map[AlertLevel]int `json:"by_alert_level"`
	CostValuation   decimal.Decimal    `json:"cost_valuation"`
	RetailValuation decimal.Decimal    `json:"retail_valuation"`
}

// DailyReport is the end-of-day snapshot archived by the scheduler.
type DailyReport struct {
	Date        string        `json:"date"`
	Sales       SalesSummary  `json:"sales"`
	Stock       StockOverview `json:"stock"`
	GeneratedAt time.Time     `json:"generated_at"`
}
