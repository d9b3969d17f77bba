// Package pricing computes booking charges and cancellation refunds. Every
// function here is pure; nothing in this package touches storage or the
// payment gateway.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"marketplace-booking/internal/data/entity"
)

const basisPoints = 10000

// MaxAmount bounds every amount and running total a booking can carry.
const MaxAmount int64 = math.MaxInt64 / basisPoints

var (
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrAmountOutOfRange = errors.New("amount out of range")
	ErrInvalidTaxRate   = errors.New("tax rate must be between 0 and 1")
	ErrInvalidTiers     = errors.New("invalid refund tiers")
)

// Tier grants Percent of the total when strictly more than MinNotice remains
// before the scheduled date.
type Tier struct {
	MinNotice time.Duration
	Percent   int64
}

// DefaultTiers mirrors the marketplace's published cancellation policy.
var DefaultTiers = []Tier{
	{MinNotice: 24 * time.Hour, Percent: 100},
	{MinNotice: 12 * time.Hour, Percent: 75},
	{MinNotice: 2 * time.Hour, Percent: 50},
}

const DefaultFloorPercent int64 = 25

type Calculator struct {
	taxBps       int64
	currency     string
	tiers        []Tier
	floorPercent int64
}

type Config struct {
	TaxRate      float64
	Currency     string
	Tiers        []Tier
	FloorPercent int64
}

func NewCalculator(cfg Config) (*Calculator, error) {
	if cfg.TaxRate < 0 || cfg.TaxRate > 1 || math.IsNaN(cfg.TaxRate) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTaxRate, cfg.TaxRate)
	}
	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	tiers = append([]Tier(nil), tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinNotice > tiers[j].MinNotice })
	for _, t := range tiers {
		if t.Percent < 0 || t.Percent > 100 || t.MinNotice < 0 {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidTiers, t)
		}
	}
	if cfg.FloorPercent < 0 || cfg.FloorPercent > 100 {
		return nil, fmt.Errorf("%w: floor %d", ErrInvalidTiers, cfg.FloorPercent)
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Calculator{
		taxBps:       int64(math.Round(cfg.TaxRate * basisPoints)),
		currency:     currency,
		tiers:        tiers,
		floorPercent: cfg.FloorPercent,
	}, nil
}

func (c *Calculator) Currency() string {
	return c.currency
}

// Quote prices a new booking.
func (c *Calculator) Quote(base, discount int64, additional []entity.Charge) (entity.Pricing, error) {
	if base < 0 || discount < 0 {
		return entity.Pricing{}, ErrNegativeAmount
	}
	if base > MaxAmount || discount > MaxAmount {
		return entity.Pricing{}, ErrAmountOutOfRange
	}
	tax := c.Tax(base)
	sum := base + tax
	for _, ch := range additional {
		if ch.Amount < 0 {
			return entity.Pricing{}, ErrNegativeAmount
		}
		if ch.Amount > MaxAmount-sum {
			return entity.Pricing{}, ErrAmountOutOfRange
		}
		sum += ch.Amount
	}
	if sum > MaxAmount {
		return entity.Pricing{}, ErrAmountOutOfRange
	}
	p := entity.Pricing{
		BaseAmount:        base,
		AdditionalCharges: append([]entity.Charge(nil), additional...),
		Discount:          discount,
		TaxAmount:         tax,
		Currency:          c.currency,
	}
	p.TotalAmount = Total(p)
	return p, nil
}

// Tax is round(base × rate), half away from zero.
func (c *Calculator) Tax(base int64) int64 {
	if base < 0 {
		return -mulDiv(-base, c.taxBps, basisPoints)
	}
	return mulDiv(base, c.taxBps, basisPoints)
}

// Total applies total = base + tax + Σ additional − discount, floored at 0.
func Total(p entity.Pricing) int64 {
	total := p.BaseAmount + p.TaxAmount + p.AdditionalTotal() - p.Discount
	if total < 0 {
		return 0
	}
	return total
}

// WithCharge appends an extra charge and recomputes the total. Tax stays
// frozen on the base amount.
func WithCharge(p entity.Pricing, ch entity.Charge) (entity.Pricing, error) {
	if ch.Amount < 0 {
		return p, ErrNegativeAmount
	}
	if ch.Amount > MaxAmount-(p.BaseAmount+p.TaxAmount+p.AdditionalTotal()) {
		return p, ErrAmountOutOfRange
	}
	p.AdditionalCharges = append(append([]entity.Charge(nil), p.AdditionalCharges...), ch)
	p.TotalAmount = Total(p)
	return p, nil
}

// RefundPercent picks the tier for the notice left before the service.
func (c *Calculator) RefundPercent(scheduled, cancelledAt time.Time) int64 {
	remaining := scheduled.Sub(cancelledAt)
	for _, t := range c.tiers {
		if remaining > t.MinNotice {
			return t.Percent
		}
	}
	return c.floorPercent
}

// Refund is round(total × tier%), bounded to [0, total].
func (c *Calculator) Refund(total int64, scheduled, cancelledAt time.Time) int64 {
	return RefundAmount(total, c.RefundPercent(scheduled, cancelledAt))
}

func RefundAmount(total, percent int64) int64 {
	if total <= 0 || percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return total
	}
	return mulDiv(total, percent, 100)
}

// mulDiv is round(n × k / d), half up, for n ≥ 0 and 0 ≤ k ≤ d. The whole
// quotient is scaled separately from the remainder so n × k never overflows.
func mulDiv(n, k, d int64) int64 {
	return n/d*k + (n%d*k+d/2)/d
}
