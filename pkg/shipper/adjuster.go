package shipper

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateAdjuster transforms a rate's total charges. The manager only keeps the
// TotalCharges of the returned rate; every other field stays as the carrier
// reported it.
type RateAdjuster interface {
	AdjustRate(rate Rate) Rate
}

// RateAdjusterFunc adapts a function to the RateAdjuster interface.
type RateAdjusterFunc func(rate Rate) Rate

// AdjustRate calls f(rate).
func (f RateAdjusterFunc) AdjustRate(rate Rate) Rate {
	return f(rate)
}

// FactorAdjuster multiplies total charges by a fixed factor, e.g. 0.9 for a
// 10% discount.
type FactorAdjuster struct {
	Factor decimal.Decimal
}

// NewFactorAdjuster creates a FactorAdjuster. The factor must not be negative.
func NewFactorAdjuster(factor decimal.Decimal) (*FactorAdjuster, error) {
	if factor.IsNegative() {
		return nil, fmt.Errorf("adjustment factor must not be negative: %s", factor)
	}
	return &FactorAdjuster{Factor: factor}, nil
}

// AdjustRate implements RateAdjuster.
func (a *FactorAdjuster) AdjustRate(rate Rate) Rate {
	rate.TotalCharges = rate.TotalCharges.Mul(a.Factor)
	return rate
}

// FlatFeeAdjuster adds a fixed amount, such as a handling fee, to total
// charges.
type FlatFeeAdjuster struct {
	Amount decimal.Decimal
}

// AdjustRate implements RateAdjuster.
func (a *FlatFeeAdjuster) AdjustRate(rate Rate) Rate {
	rate.TotalCharges = rate.TotalCharges.Add(a.Amount)
	return rate
}

// applyAdjusters runs the pipeline in order over a single rate.
func applyAdjusters(rate Rate, adjusters []RateAdjuster) Rate {
	total := rate.TotalCharges
	for _, adj := range adjusters {
		in := rate
		in.TotalCharges = total
		total = adj.AdjustRate(in).TotalCharges
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	rate.TotalCharges = total
	return rate
}
