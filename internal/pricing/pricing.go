// Package pricing computes sale totals.
//
// Amounts are exact decimals. Each reported amount is rounded half away from
// zero to two places when it is produced, and later amounts are derived from
// the rounded ones, so Total always equals Subtotal - DiscountAmount + TaxAmount.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// Places is the scale of every price and amount column.
	Places = 2
	// PercentPlaces is the scale of the discount and tax percent columns.
	PercentPlaces = 4
)

var (
	ErrPercentOutOfRange = errors.New("percent must be between 0 and 100")
	ErrPercentPrecision  = errors.New("percent allows at most 4 decimal places")
	ErrNegativePrice     = errors.New("unit price must not be negative")
	ErrPricePrecision    = errors.New("unit price allows at most 2 decimal places")
	ErrNonPositiveQty    = errors.New("quantity must be at least 1")
)

var hundred = decimal.NewFromInt(100)

// Line is the input of a single priced row.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns the exact unit price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals is the priced result of a cart.
type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	AfterDiscount   decimal.Decimal `json:"after_discount"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	Total           decimal.Decimal `json:"total"`
}

// Round applies the currency rounding used for every stored amount.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// CheckPercent validates a discount or tax percentage.
func CheckPercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return ErrPercentOutOfRange
	}
	if !p.Equal(p.Truncate(PercentPlaces)) {
		return ErrPercentPrecision
	}
	return nil
}

// CheckPrice validates a unit price against the stored scale, so the
// persisted price is exactly the one the sale was priced at.
func CheckPrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return ErrNegativePrice
	}
	if !p.Equal(p.Truncate(Places)) {
		return ErrPricePrecision
	}
	return nil
}

// Compute prices the given lines.
func Compute(lines []Line, discountPercent, taxPercent decimal.Decimal) (Totals, error) {
	if err := CheckPercent(discountPercent); err != nil {
		return Totals{}, err
	}
	if err := CheckPercent(taxPercent); err != nil {
		return Totals{}, err
	}

	sum := decimal.Zero
	for _, l := range lines {
		if l.Quantity < 1 {
			return Totals{}, ErrNonPositiveQty
		}
		if err := CheckPrice(l.UnitPrice); err != nil {
			return Totals{}, err
		}
		sum = sum.Add(l.Total())
	}

	subtotal := Round(sum)
	discount := Round(subtotal.Mul(discountPercent).Div(hundred))
	after := subtotal.Sub(discount)
	tax := Round(after.Mul(taxPercent).Div(hundred))

	return Totals{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discount,
		AfterDiscount:   after,
		TaxPercent:      taxPercent,
		TaxAmount:       tax,
		Total:           after.Add(tax),
	}, nil
}
