package commission_fee

import "github.com/shopspring/decimal"

// DefaultCommissionRate is the typical brokerage rate for Vietnamese
// stock exchanges (0.15% of notional per leg).
const DefaultCommissionRate = 0.0015

// FlatRateCommissionFee charges a fixed fraction of the order notional.
type FlatRateCommissionFee struct {
	rate decimal.Decimal
}

// NewFlatRateCommissionFee creates a flat-rate commission handler. An
// explicit zero rate charges nothing; only a negative rate falls back to
// DefaultCommissionRate.
func NewFlatRateCommissionFee(rate float64) CommissionFee {
	if rate < 0 {
		rate = DefaultCommissionRate
	}

	return &FlatRateCommissionFee{
		rate: decimal.NewFromFloat(rate),
	}
}

// Calculate returns notional * rate.
func (c *FlatRateCommissionFee) Calculate(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(c.rate)
}
