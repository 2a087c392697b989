package transaction

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
)

// Method is a payment method.
type Method string

const (
	MethodDinheiro Method = "dinheiro"
	MethodPix      Method = "pix"
	MethodDebito   Method = "debito"
	MethodCredito  Method = "credito"
)

// Methods lists every payment method in display order.
var Methods = []Method{MethodDinheiro, MethodPix, MethodDebito, MethodCredito}

func (m Method) Valid() bool {
	return slices.Contains(Methods, m)
}

// AmountOf returns the amount paid with m.
func (m Method) AmountOf(a calculation.Amounts) decimal.Decimal {
	switch m {
	case MethodDinheiro:
		return a.Dinheiro
	case MethodPix:
		return a.Pix
	case MethodDebito:
		return a.Debito
	case MethodCredito:
		return a.Credito
	}

	return decimal.Zero
}

// Order is the date ordering of a listing.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ListFilter narrows a listing. Nil fields do not filter. Date bounds are inclusive.
type ListFilter struct {
	StartDate      *time.Time
	EndDate        *time.Time
	Month          *string
	ClienteID      *uuid.UUID
	ProfissionalID *uuid.UUID
	Method         *Method
	MinTotal       *decimal.Decimal
	MaxTotal       *decimal.Decimal
	Order          Order
}

// Matches reports whether tx passes every set criterion.
func (f ListFilter) Matches(tx *Transaction) bool {
	if f.StartDate != nil && tx.Date.Before(*f.StartDate) {
		return false
	}

	if f.EndDate != nil && tx.Date.After(*f.EndDate) {
		return false
	}

	if f.Month != nil && tx.Month != *f.Month {
		return false
	}

	if f.ClienteID != nil && (tx.ClienteID == nil || *tx.ClienteID != *f.ClienteID) {
		return false
	}

	if f.ProfissionalID != nil && (tx.ProfissionalID == nil || *tx.ProfissionalID != *f.ProfissionalID) {
		return false
	}

	if f.Method != nil && !f.Method.AmountOf(tx.Amounts).IsPositive() {
		return false
	}

	if f.MinTotal != nil && tx.TotalBruto.LessThan(*f.MinTotal) {
		return false
	}

	if f.MaxTotal != nil && tx.TotalBruto.GreaterThan(*f.MaxTotal) {
		return false
	}

	return true
}

// Sort orders txs by date, breaking ties by creation time and id so listings are stable.
func Sort(txs []*Transaction, order Order) {
	slices.SortStableFunc(txs, func(a, b *Transaction) int {
		c := a.Date.Compare(b.Date)
		if c == 0 {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}

		if c == 0 {
			c = slices.Compare(a.ID[:], b.ID[:])
		}

		if order == OrderDesc {
			return -c
		}

		return c
	})
}
