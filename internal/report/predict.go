package report

import (
	"github.com/shopspring/decimal"
)

const (
	FactorInsufficientData = "insufficient historical data"
	FactorConsistentGrowth = "consistent growth"
	FactorDownwardTrend    = "downward trend"
	FactorRecentSpike      = "recent spike"
	FactorStableResults    = "stable results"

	RecommendWait      = "wait for more data"
	RecommendExpand    = "continue strategy, consider expanding"
	RecommendRetain    = "review strategy, focus on retention"
	RecommendNewGrowth = "seek new growth opportunities"
)

// predictWindow is how many of the most recent points Predict looks at.
const predictWindow = 3

// Estimate is a next-period revenue guess. It is a moving-average heuristic:
// Confidence only reflects how steady recent growth was, not statistical certainty.
type Estimate struct {
	NextPeriodRevenue decimal.Decimal `json:"nextPeriodRevenue"`
	Confidence        decimal.Decimal `json:"confidence"` // 0 to 100
	Factors           []string        `json:"factors"`
	Recommendation    string          `json:"recommendation"`
}

var (
	window      = decimal.NewFromInt(predictWindow)
	ten         = decimal.NewFromInt(10)
	spikeRatio  = decimal.RequireFromString("1.2")
	growthHigh  = decimal.NewFromInt(10)
	growthLow   = decimal.NewFromInt(-5)
	expandAbove = decimal.NewFromInt(5)
	stableBelow = decimal.NewFromInt(25)
)

// Predict estimates the period after the last point of trend from its last three points.
func Predict(trend []TrendPoint) Estimate {
	if len(trend) < predictWindow {
		return Estimate{
			NextPeriodRevenue: decimal.Zero,
			Confidence:        decimal.Zero,
			Factors:           []string{FactorInsufficientData},
			Recommendation:    RecommendWait,
		}
	}

	recent := trend[len(trend)-predictWindow:]

	var revenueSum, growthSum decimal.Decimal
	for _, p := range recent {
		revenueSum = revenueSum.Add(p.Revenue)
		growthSum = growthSum.Add(p.Growth)
	}

	avgRevenue := revenueSum.Div(window)
	avgGrowth := growthSum.Div(window)

	var squares decimal.Decimal
	for _, p := range recent {
		d := p.Growth.Sub(avgGrowth)
		squares = squares.Add(d.Mul(d))
	}

	variance := squares.Div(window)
	confidence := decimal.Min(hundred, decimal.Max(decimal.Zero, hundred.Sub(variance.Div(ten))))

	factors := []string{}

	if avgGrowth.GreaterThan(growthHigh) {
		factors = append(factors, FactorConsistentGrowth)
	}

	if avgGrowth.LessThan(growthLow) {
		factors = append(factors, FactorDownwardTrend)
	}

	if recent[len(recent)-1].Revenue.GreaterThan(avgRevenue.Mul(spikeRatio)) {
		factors = append(factors, FactorRecentSpike)
	}

	if variance.LessThan(stableBelow) {
		factors = append(factors, FactorStableResults)
	}

	return Estimate{
		NextPeriodRevenue: avgRevenue.Mul(decimal.NewFromInt(1).Add(avgGrowth.Div(hundred))),
		Confidence:        confidence,
		Factors:           factors,
		Recommendation:    recommend(avgGrowth),
	}
}

func recommend(avgGrowth decimal.Decimal) string {
	switch {
	case avgGrowth.GreaterThan(expandAbove):
		return RecommendExpand
	case avgGrowth.LessThan(growthLow):
		return RecommendRetain
	default:
		return RecommendNewGrowth
	}
}
