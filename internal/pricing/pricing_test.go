package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeScenario(t *testing.T) {
	lines := []Line{
		{UnitPrice: dec("100"), Quantity: 2},
		{UnitPrice: dec("50"), Quantity: 1},
	}

	got, err := Compute(lines, dec("10"), dec("18"))
	require.NoError(t, err)

	assert.True(t, got.Subtotal.Equal(dec("250")), "subtotal %s", got.Subtotal)
	assert.True(t, got.DiscountAmount.Equal(dec("25")), "discount %s", got.DiscountAmount)
	assert.True(t, got.AfterDiscount.Equal(dec("225")), "after discount %s", got.AfterDiscount)
	assert.True(t, got.TaxAmount.Equal(dec("40.5")), "tax %s", got.TaxAmount)
	assert.True(t, got.Total.Equal(dec("265.5")), "total %s", got.Total)
}

func TestComputeRounding(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		discount string
		tax      string
		wantDisc string
		wantTax  string
		want     string
	}{
		{"no discount no tax", []Line{{dec("9.99"), 3}}, "0", "0", "0", "0", "29.97"},
		{"half cent discount rounds up", []Line{{dec("0.25"), 1}}, "10", "0", "0.03", "0", "0.22"},
		{"tax on discounted", []Line{{dec("19.99"), 1}}, "15", "7.5", "3", "1.27", "18.26"},
		{"full discount", []Line{{dec("42"), 2}}, "100", "18", "84", "0", "0"},
		{"third of a cent", []Line{{dec("0.10"), 1}}, "33.3333", "0", "0.03", "0", "0.07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.lines, dec(tt.discount), dec(tt.tax))
			require.NoError(t, err)
			assert.True(t, got.DiscountAmount.Equal(dec(tt.wantDisc)), "discount %s", got.DiscountAmount)
			assert.True(t, got.TaxAmount.Equal(dec(tt.wantTax)), "tax %s", got.TaxAmount)
			assert.True(t, got.Total.Equal(dec(tt.want)), "total %s", got.Total)
		})
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	_, err := Compute([]Line{{dec("1"), 1}}, dec("-1"), dec("0"))
	assert.ErrorIs(t, err, ErrPercentOutOfRange)

	_, err = Compute([]Line{{dec("1"), 1}}, dec("0"), dec("100.01"))
	assert.ErrorIs(t, err, ErrPercentOutOfRange)

	_, err = Compute([]Line{{dec("1"), 0}}, dec("0"), dec("0"))
	assert.ErrorIs(t, err, ErrNonPositiveQty)

	_, err = Compute([]Line{{dec("-1"), 1}}, dec("0"), dec("0"))
	assert.ErrorIs(t, err, ErrNegativePrice)

	_, err = Compute([]Line{{dec("1.005"), 1}}, dec("0"), dec("0"))
	assert.ErrorIs(t, err, ErrPricePrecision)

	_, err = Compute([]Line{{dec("1"), 1}}, dec("0"), dec("8.87501"))
	assert.ErrorIs(t, err, ErrPercentPrecision)
}

func TestCheckScale(t *testing.T) {
	assert.NoError(t, CheckPercent(dec("8.875")))
	assert.NoError(t, CheckPercent(dec("33.3333")))
	assert.NoError(t, CheckPercent(dec("12.5000000")))
	assert.ErrorIs(t, CheckPercent(dec("33.33333")), ErrPercentPrecision)

	assert.NoError(t, CheckPrice(dec("1.01")))
	assert.NoError(t, CheckPrice(dec("2.500")))
	assert.ErrorIs(t, CheckPrice(dec("1.005")), ErrPricePrecision)
	assert.ErrorIs(t, CheckPrice(dec("-0.01")), ErrNegativePrice)
}

func TestComputeRandomCarts(t *testing.T) {
	rng := rand.New(rand.NewSource(20261015))

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(8)
		lines := make([]Line, n)
		exact := decimal.Zero
		for j := range lines {
			lines[j] = Line{
				UnitPrice: decimal.New(int64(rng.Intn(100000)), -2),
				Quantity:  1 + rng.Intn(20),
			}
			exact = exact.Add(lines[j].Total())
		}
		discount := decimal.New(int64(rng.Intn(10001)), -2)
		tax := decimal.New(int64(rng.Intn(3001)), -2)

		got, err := Compute(lines, discount, tax)
		require.NoError(t, err)

		hundred := decimal.NewFromInt(100)
		assert.True(t, got.Subtotal.Equal(exact.Round(2)))
		assert.True(t, got.DiscountAmount.Equal(got.Subtotal.Mul(discount).Div(hundred).Round(2)))
		assert.True(t, got.Total.Equal(got.Subtotal.Sub(got.DiscountAmount).Add(got.TaxAmount)))
		assert.False(t, got.Total.IsNegative())
		assert.True(t, got.Total.Equal(got.Total.Round(2)))
	}
}
