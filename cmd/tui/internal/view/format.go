package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const dbTimeout = 5 * time.Second

// FormatMoney renders an amount with two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatPercent renders a percentage with one decimal and a sign.
func FormatPercent(d decimal.Decimal) string {
	s := d.StringFixed(1) + "%"
	if d.IsPositive() {
		return "+" + s
	}

	return s
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for storage operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
