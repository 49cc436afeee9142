package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedItem is returned when a stored inventory record violates its invariants.
var ErrMalformedItem = errors.New("malformed inventory record")

// InventoryItem is a stocked article. Quantity is only ever decremented by the
// sale commit; admin edits set it absolutely.
type InventoryItem struct {
	BaseModel
	Name         string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	SKU          string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Category     string          `gorm:"type:varchar(100);index" json:"category"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price"`
	CostPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost_price"`
	Quantity     int             `gorm:"not null;default:0" json:"quantity" validate:"gte=0"`
	ReorderLevel int             `gorm:"not null;default:0" json:"reorder_level" validate:"gte=0"`
}

// TableName specifies the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// Validate checks the invariants a record must satisfy before business logic uses it.
func (i *InventoryItem) Validate() error {
	switch {
	case strings.TrimSpace(i.Name) == "":
		return fmt.Errorf("%w: item %s has no name", ErrMalformedItem, i.ID)
	case i.Quantity < 0:
		return fmt.Errorf("%w: item %s has negative quantity %d", ErrMalformedItem, i.ID, i.Quantity)
	case i.ReorderLevel < 0:
		return fmt.Errorf("%w: item %s has negative reorder level %d", ErrMalformedItem, i.ID, i.ReorderLevel)
	case i.UnitPrice.IsNegative() || i.CostPrice.IsNegative():
		return fmt.Errorf("%w: item %s has a negative price", ErrMalformedItem, i.ID)
	}
	return nil
}

// AlertLevel classifies the current stock against the reorder level.
func (i *InventoryItem) AlertLevel() AlertLevel {
	return ClassifyStock(i.Quantity, i.ReorderLevel)
}

// InventoryItemResponse adds the derived alert level for API consumers.
type InventoryItemResponse struct {
	InventoryItem
	AlertLevel AlertLevel `json:"alert_level"`
}

// ToResponse converts InventoryItem to InventoryItemResponse
func (i *InventoryItem) ToResponse() InventoryItemResponse {
	return InventoryItemResponse{InventoryItem: *i, AlertLevel: i.AlertLevel()}
}
