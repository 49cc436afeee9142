package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

// Valid reports whether the payment method is one of the accepted values.
func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentOnline
}

// Customer is optional buyer information recorded on a sale.
type Customer struct {
	Name  string `gorm:"column:customer_name;type:varchar(255)" json:"name,omitempty"`
	Phone string `gorm:"column:customer_phone;type:varchar(30)" json:"phone,omitempty"`
	Email string `gorm:"column:customer_email;type:varchar(255)" json:"email,omitempty" validate:"omitempty,email"`
}

// Sale is the immutable record of a completed checkout. Lines are a snapshot
// of the items at sale time, not references to live inventory.
type Sale struct {
	BaseModel
	ReceiptNo       string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"receipt_no"`
	Customer        Customer        `gorm:"embedded" json:"customer"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(10);not null" json:"payment_method"`
	Lines           []SaleLine      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"lines"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(7,4);not null;default:0" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount_amount"`
	TaxPercent      decimal.Decimal `gorm:"type:numeric(7,4);not null;default:0" json:"tax_percent"`
	TaxAmount       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"tax_amount"`
	Total           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`

	// CashierID is the signed-in user who rang up the sale.
	CashierID *uuid.UUID `gorm:"type:uuid;index" json:"cashier_id,omitempty"`
}

// TableName specifies the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// ItemQuantities sums line quantities per item id.
func (s *Sale) ItemQuantities() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.Lines))
	for _, l := range s.Lines {
		out[l.ItemID] += l.Quantity
	}
	return out
}

// SaleLine is one priced row of a sale.
type SaleLine struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	ItemID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"line_total"`
}

// TableName specifies the table name for GORM
func (SaleLine) TableName() string {
	return "sale_lines"
}

// CartLine is a cart row submitted at checkout.
type CartLine struct {
	ItemID    uuid.UUID       `json:"item_id" validate:"uuid_required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
}
