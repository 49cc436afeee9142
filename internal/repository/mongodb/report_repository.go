// Package mongodb archives end-of-day reports in MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-pos-inventory/internal/model"
)

const collDailyReports = "daily_reports"

// MongoDBRepository stores one report per calendar day.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository connects and pings the server.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: collDailyReports,
	}, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveDailyReport replaces the report of the same date, so reruns are idempotent.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report model.DailyReport) error {
	doc, err := toDocument(report)
	if err != nil {
		return err
	}
	_, err = r.collection().ReplaceOne(ctx,
		bson.M{"date": report.Date},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert daily report %s: %w", report.Date, err)
	}
	return nil
}

// FindDailyReport returns (nil, nil) when no report was archived for date.
func (r *MongoDBRepository) FindDailyReport(ctx context.Context, date string) (*model.DailyReport, error) {
	var doc reportDocument
	err := r.collection().FindOne(ctx, bson.M{"date": date}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load daily report %s: %w", date, err)
	}
	report := fromDocument(doc)
	return &report, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

type reportDocument struct {
	Date            string                          `bson:"date"`
	From            time.Time                       `bson:"from"`
	To              time.Time                       `bson:"to"`
	SaleCount       int                             `bson:"sale_count"`
	Revenue         primitive.Decimal128            `bson:"revenue"`
	DiscountTotal   primitive.Decimal128            `bson:"discount_total"`
	TaxTotal        primitive.Decimal128            `bson:"tax_total"`
	AverageTicket   primitive.Decimal128            `bson:"average_ticket"`
	MedianTicket    primitive.Decimal128            `bson:"median_ticket"`
	ByPayment       map[string]primitive.Decimal128 `bson:"by_payment"`
	TopItems        []topItemDocument               `bson:"top_items"`
	TotalItems      int                             `bson:"total_items"`
	ByAlertLevel    map[string]int                  `bson:"by_alert_level"`
	CostValuation   primitive.Decimal128            `bson:"cost_valuation"`
	RetailValuation primitive.Decimal128            `bson:"retail_valuation"`
	GeneratedAt     time.Time                       `bson:"generated_at"`
}

type topItemDocument struct {
	ItemID   string               `bson:"item_id"`
	Name     string               `bson:"name"`
	Quantity int                  `bson:"quantity"`
	Revenue  primitive.Decimal128 `bson:"revenue"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode amount %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toDocument(r model.DailyReport) (reportDocument, error) {
	doc := reportDocument{
		Date:         r.Date,
		From:         r.Sales.From,
		To:           r.Sales.To,
		SaleCount:    r.Sales.SaleCount,
		ByPayment:    map[string]primitive.Decimal128{},
		TotalItems:   r.Stock.TotalItems,
		ByAlertLevel: map[string]int{},
		GeneratedAt:  r.GeneratedAt,
	}

	var err error
	amounts := []struct {
		dst *primitive.Decimal128
		src decimal.Decimal
	}{
		{&doc.Revenue, r.Sales.Revenue},
		{&doc.DiscountTotal, r.Sales.DiscountTotal},
		{&doc.TaxTotal, r.Sales.TaxTotal},
		{&doc.AverageTicket, r.Sales.AverageTicket},
		{&doc.MedianTicket, r.Sales.MedianTicket},
		{&doc.CostValuation, r.Stock.CostValuation},
		{&doc.RetailValuation, r.Stock.RetailValuation},
	}
	for _, a := range amounts {
		if *a.dst, err = toDecimal128(a.src); err != nil {
			return reportDocument{}, err
		}
	}

	for method, total := range r.Sales.ByPayment {
		if doc.ByPayment[string(method)], err = toDecimal128(total); err != nil {
			return reportDocument{}, err
		}
	}
	for level, n := range r.Stock.ByAlertLevel {
		doc.ByAlertLevel[string(level)] = n
	}
	for _, t := range r.Sales.TopItems {
		rev, err := toDecimal128(t.Revenue)
		if err != nil {
			return reportDocument{}, err
		}
		doc.TopItems = append(doc.TopItems, topItemDocument{ItemID: t.ItemID, Name: t.Name, Quantity: t.Quantity, Revenue: rev})
	}
	return doc, nil
}

func fromDocument(doc reportDocument) model.DailyReport {
	r := model.DailyReport{
		Date:        doc.Date,
		GeneratedAt: doc.GeneratedAt,
		Sales: model.SalesSummary{
			From:          doc.From,
			To:            doc.To,
			SaleCount:     doc.SaleCount,
			Revenue:       fromDecimal128(doc.Revenue),
			DiscountTotal: fromDecimal128(doc.DiscountTotal),
			TaxTotal:      fromDecimal128(doc.TaxTotal),
			AverageTicket: fromDecimal128(doc.AverageTicket),
			MedianTicket:  fromDecimal128(doc.MedianTicket),
			ByPayment:     map[model.PaymentMethod]decimal.Decimal{},
			TopItems:      []model.TopItem{},
		},
		Stock: model.StockOverview{
			TotalItems:      doc.TotalItems,
			ByAlertLevel:    map[model.AlertLevel]int{},
			CostValuation:   fromDecimal128(doc.CostValuation),
			RetailValuation: fromDecimal128(doc.RetailValuation),
		},
	}
	for method, total := range doc.ByPayment {
		r.Sales.ByPayment[model.PaymentMethod(method)] = fromDecimal128(total)
	}
	for level, n := range doc.ByAlertLevel {
		r.Stock.ByAlertLevel[model.AlertLevel(level)] = n
	}
	for _, t := range doc.TopItems {
		r.Sales.TopItems = append(r.Sales.TopItems, model.TopItem{ItemID: t.ItemID, Name: t.Name, Quantity: t.Quantity, Revenue: fromDecimal128(t.Revenue)})
	}
	return r
}
