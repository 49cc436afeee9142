// Package events is the in-process subscribe/notify channel between the
// services and the realtime feed.
package events

import (
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-pos-inventory/internal/model"
)

const (
	TopicSaleCommitted    = "sale.committed"
	TopicSaleEdited       = "sale.edited"
	TopicInventoryChanged = "inventory.changed"
	TopicStockAlert       = "stock.alert"
)

// Actor identifies who triggered an event.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type SaleEvent struct {
	SaleID    uuid.UUID       `json:"sale_id"`
	ReceiptNo string          `json:"receipt_no"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	Actor     Actor           `json:"user"`
	At        time.Time       `json:"at"`
}

type InventoryEvent struct {
	ItemID      uuid.UUID        `json:"item_id"`
	SKU         string           `json:"sku"`
	Name        string           `json:"name"`
	OldQuantity int              `json:"old_quantity"`
	NewQuantity int              `json:"new_quantity"`
	AlertLevel  model.AlertLevel `json:"alert_level"`
	Reason      string           `json:"reason"` // sale, sale_edit, created, updated, deleted
	Actor       Actor            `json:"user"`
	At          time.Time        `json:"at"`
}

type StockAlertEvent struct {
	ItemID       uuid.UUID        `json:"item_id"`
	SKU          string           `json:"sku"`
	Name         string           `json:"name"`
	Quantity     int              `json:"quantity"`
	ReorderLevel int              `json:"reorder_level"`
	Level        model.AlertLevel `json:"level"`
	At           time.Time        `json:"at"`
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(topic string, payload interface{})
}

// Bus fans events out to subscribers. Each subscriber runs on its own
// goroutine and sees events one at a time, in publication order. Payloads are
// always passed by value.
type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Publish(topic string, payload interface{}) {
	b.bus.Publish(topic, payload)
}

// Subscribe registers fn, a func taking the topic's payload type, to run
// asynchronously in publication order.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.SubscribeAsync(topic, fn, true)
}

func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

// Wait blocks until all async handlers have finished.
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(string, interface{}) {}
