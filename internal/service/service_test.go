package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-pos-inventory/internal/events"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
		// sqlite compares timestamps as text
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

func seedItem(t *testing.T, db *gorm.DB, name string, price string, qty, reorder int) *model.InventoryItem {
	t.Helper()
	item := &model.InventoryItem{
		Name:         name,
		SKU:          "SKU-" + name,
		UnitPrice:    decimal.RequireFromString(price),
		CostPrice:    decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		Quantity:     qty,
		ReorderLevel: reorder,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func quantityOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var item model.InventoryItem
	require.NoError(t, db.First(&item, "id = ?", id).Error)
	return item.Quantity
}

func countSales(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Sale{}).Count(&n).Error)
	return n
}

type published struct {
	topic   string
	payload interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(topic string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic, payload})
}

func (r *recorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.topic
	}
	return out
}

func (r *recorder) byTopic(topic string) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interface{}
	for _, e := range r.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

var cashier = events.Actor{ID: uuid.NewString(), Name: "Ana", Email: "ana@example.com"}

func line(item *model.InventoryItem, price string, qty int) model.CartLine {
	return model.CartLine{ItemID: item.ID, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func pct(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
