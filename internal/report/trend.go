package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

var hundred = decimal.NewFromInt(100)

// TrendPoint is one month of a revenue series.
type TrendPoint struct {
	Period       string          `json:"period"`
	Revenue      decimal.Decimal `json:"revenue"`
	Growth       decimal.Decimal `json:"growth"` // percent vs the previous point
	Transactions int             `json:"transactions"`
	AvgTicket    decimal.Decimal `json:"avgTicket"`
}

// Periods returns the periodsBack month keys ending at ref's month, oldest first.
func Periods(ref time.Time, periodsBack int) []string {
	if periodsBack <= 0 {
		return nil
	}

	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]string, periodsBack)
	for i := range periodsBack {
		out[i] = transaction.MonthKey(first.AddDate(0, i-periodsBack+1, 0))
	}

	return out
}

// BuildTrend buckets txs into the periodsBack months ending at ref's month.
// Growth is measured against the previous point of the series and is zero when that
// point had no revenue; the first point has no predecessor and also gets zero.
func BuildTrend(txs []*transaction.Transaction, periodsBack int, ref time.Time) []TrendPoint {
	periods := Periods(ref, periodsBack)
	if len(periods) == 0 {
		return []TrendPoint{}
	}

	type bucket struct {
		revenue decimal.Decimal
		count   int
	}

	buckets := make(map[string]*bucket, len(periods))
	for _, p := range periods {
		buckets[p] = &bucket{}
	}

	for _, tx := range txs {
		b, ok := buckets[tx.Month]
		if !ok {
			continue
		}

		b.revenue = b.revenue.Add(tx.TotalBruto)
		b.count++
	}

	points := make([]TrendPoint, len(periods))

	for i, p := range periods {
		b := buckets[p]
		points[i] = TrendPoint{
			Period:       p,
			Revenue:      b.revenue,
			Transactions: b.count,
			AvgTicket:    average(b.revenue, b.count),
		}

		if i > 0 {
			points[i].Growth = growth(points[i-1].Revenue, b.revenue)
		}
	}

	return points
}

func growth(previous, current decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}

	return current.Sub(previous).Div(previous).Mul(hundred)
}
