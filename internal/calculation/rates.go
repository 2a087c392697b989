package calculation

import "github.com/shopspring/decimal"

// Rates holds the fee and split policy as percentages (1.61 means 1.61%).
type Rates struct {
	DebitFee     decimal.Decimal `json:"debitFeeRate"`
	CreditFee    decimal.Decimal `json:"creditFeeRate"`
	Studio       decimal.Decimal `json:"studioRate"`
	Professional decimal.Decimal `json:"eduRate"`
	// Assistant is a percentage of the professional share, not of the net total.
	Assistant decimal.Decimal `json:"kamRate"`
}

// DefaultRates returns the card fees and split percentages used when nothing is configured.
func DefaultRates() Rates {
	return Rates{
		DebitFee:     decimal.RequireFromString("1.61"),
		CreditFee:    decimal.RequireFromString("3.51"),
		Studio:       decimal.NewFromInt(60),
		Professional: decimal.NewFromInt(40),
		Assistant:    decimal.NewFromInt(10),
	}
}

// SplitOverride replaces some of the split percentages for a single calculation.
// Nil fields keep the base value.
type SplitOverride struct {
	Studio       *decimal.Decimal `json:"studioRate,omitempty"`
	Professional *decimal.Decimal `json:"eduRate,omitempty"`
	Assistant    *decimal.Decimal `json:"kamRate,omitempty"`
}

// IsZero reports whether the override changes nothing.
func (o SplitOverride) IsZero() bool {
	return o.Studio == nil && o.Professional == nil && o.Assistant == nil
}

var hundred = decimal.NewFromInt(100)

// WithSplit returns a copy of r with the override applied. Override values are clamped to [0, 100].
func (r Rates) WithSplit(o SplitOverride) Rates {
	if o.Studio != nil {
		r.Studio = clampPercent(*o.Studio)
	}

	if o.Professional != nil {
		r.Professional = clampPercent(*o.Professional)
	}

	if o.Assistant != nil {
		r.Assistant = clampPercent(*o.Assistant)
	}

	return r
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}

	if p.GreaterThan(hundred) {
		return hundred
	}

	return p
}

// fraction converts a percentage into a multiplier without losing precision.
func fraction(p decimal.Decimal) decimal.Decimal {
	return p.Shift(-2)
}
