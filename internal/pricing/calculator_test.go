package pricing

import (
	"math"
	"testing"
	"time"

	"marketplace-booking/internal/data/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(Config{TaxRate: 0.18, Currency: "INR", FloorPercent: DefaultFloorPercent})
	require.NoError(t, err)
	return c
}

func TestQuote(t *testing.T) {
	c := newTestCalculator(t)

	p, err := c.Quote(1000, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(180), p.TaxAmount)
	assert.Equal(t, int64(1180), p.TotalAmount)
	assert.Equal(t, "INR", p.Currency)

	p, err = c.Quote(999, 50, []entity.Charge{{Description: "parts", Amount: 120}})
	require.NoError(t, err)
	// 999 * 0.18 = 179.82
	assert.Equal(t, int64(180), p.TaxAmount)
	assert.Equal(t, int64(999+180+120-50), p.TotalAmount)

	p, err = c.Quote(10, 500, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.TotalAmount)

	_, err = c.Quote(-1, 0, nil)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestWithChargeKeepsTaxFrozen(t *testing.T) {
	c := newTestCalculator(t)
	p, err := c.Quote(1000, 0, nil)
	require.NoError(t, err)

	p2, err := WithCharge(p, entity.Charge{Description: "extra hour", Amount: 300})
	require.NoError(t, err)
	assert.Equal(t, int64(180), p2.TaxAmount)
	assert.Equal(t, int64(1480), p2.TotalAmount)
	assert.Len(t, p.AdditionalCharges, 0, "original pricing must not change")

	_, err = WithCharge(p, entity.Charge{Amount: -5})
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestRefundPercentBoundaries(t *testing.T) {
	c := newTestCalculator(t)
	scheduled := time.Date(2030, 1, 10, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		before time.Duration
		want   int64
	}{
		{"24h1m", 24*time.Hour + time.Minute, 100},
		{"exactly 24h", 24 * time.Hour, 75},
		{"13h", 13 * time.Hour, 75},
		{"exactly 12h", 12 * time.Hour, 50},
		{"3h", 3 * time.Hour, 50},
		{"exactly 2h", 2 * time.Hour, 25},
		{"1h", time.Hour, 25},
		{"after start", -time.Hour, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.RefundPercent(scheduled, scheduled.Add(-tc.before)))
		})
	}
}

func TestRefundScenario(t *testing.T) {
	c := newTestCalculator(t)
	p, err := c.Quote(1000, 0, nil)
	require.NoError(t, err)
	scheduled := time.Now().Add(72 * time.Hour)

	assert.Equal(t, int64(1180), c.Refund(p.TotalAmount, scheduled, scheduled.Add(-30*time.Hour)))
	assert.Equal(t, int64(590), c.Refund(p.TotalAmount, scheduled, scheduled.Add(-10*time.Hour)))
}

func TestRefundAmountBounded(t *testing.T) {
	for _, total := range []int64{-50, 0, 1, 3, 99, 1180, 9_999_999} {
		for _, pct := range []int64{-10, 0, 25, 50, 75, 100, 150} {
			got := RefundAmount(total, pct)
			assert.GreaterOrEqual(t, got, int64(0))
			if total > 0 {
				assert.LessOrEqual(t, got, total)
			}
		}
	}
	assert.Equal(t, int64(1), RefundAmount(3, 25), "0.75 rounds up")
	assert.Equal(t, int64(2), RefundAmount(3, 50), "1.5 rounds half away from zero")
}

func TestLargeAmountsDoNotOverflow(t *testing.T) {
	c := newTestCalculator(t)

	assert.Equal(t, int64(1660206966633860), c.Tax(math.MaxInt64/1000))
	assert.Equal(t, int64(-1660206966633860), c.Tax(-(math.MaxInt64 / 1000)))
	assert.Equal(t, int64(1180), c.Tax(1000)+1000)

	total := int64(math.MaxInt64 / 50)
	assert.Equal(t, total, RefundAmount(total, 100))
	assert.Equal(t, int64(92233720368547758), RefundAmount(total, 50))
	assert.Equal(t, int64(138350580552821637), RefundAmount(total, 75))
	assert.Equal(t, int64(6917529027641081855), RefundAmount(math.MaxInt64, 75))
}

func TestQuoteRejectsOutOfRangeAmounts(t *testing.T) {
	c := newTestCalculator(t)

	_, err := c.Quote(MaxAmount+1, 0, nil)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = c.Quote(MaxAmount, 0, nil)
	assert.ErrorIs(t, err, ErrAmountOutOfRange, "base plus tax exceeds the bound")

	_, err = c.Quote(1000, MaxAmount+1, nil)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = c.Quote(1000, 0, []entity.Charge{{Description: "parts", Amount: MaxAmount}})
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	p, err := c.Quote(MaxAmount/2, 0, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, p.TotalAmount, MaxAmount)
	assert.Greater(t, p.TotalAmount, p.BaseAmount)

	_, err = WithCharge(p, entity.Charge{Description: "parts", Amount: MaxAmount - p.TotalAmount + 1})
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	p, err = WithCharge(p, entity.Charge{Description: "parts", Amount: MaxAmount - p.TotalAmount})
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, p.TotalAmount)
}

func TestNewCalculatorValidation(t *testing.T) {
	_, err := NewCalculator(Config{TaxRate: 1.5})
	assert.ErrorIs(t, err, ErrInvalidTaxRate)

	_, err = NewCalculator(Config{Tiers: []Tier{{MinNotice: time.Hour, Percent: 120}}})
	assert.ErrorIs(t, err, ErrInvalidTiers)

	c, err := NewCalculator(Config{
		Tiers:        []Tier{{MinNotice: 2 * time.Hour, Percent: 40}, {MinNotice: 48 * time.Hour, Percent: 90}},
		FloorPercent: 10,
	})
	require.NoError(t, err)
	now := time.Now()
	assert.Equal(t, int64(90), c.RefundPercent(now.Add(72*time.Hour), now))
	assert.Equal(t, int64(40), c.RefundPercent(now.Add(5*time.Hour), now))
	assert.Equal(t, int64(10), c.RefundPercent(now.Add(time.Hour), now))
}
