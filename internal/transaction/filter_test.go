package transaction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

func TestListFilter_Matches(t *testing.T) {
	prof := uuid.New()
	other := uuid.New()

	tx := &transaction.Transaction{
		ID:             uuid.New(),
		Date:           time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Month:          "2024-06",
		Year:           2024,
		Amounts:        amounts("", "150", "", "50"),
		Result:         calculation.Result{TotalBruto: decimal.NewFromInt(200)},
		ProfissionalID: &prof,
	}

	day := func(s string) *time.Time {
		d, _ := time.Parse(time.DateOnly, s)
		return &d
	}

	method := func(m transaction.Method) *transaction.Method { return &m }
	money := func(s string) *decimal.Decimal { return new(decimal.RequireFromString(s)) }

	type testCase struct {
		name   string
		filter transaction.ListFilter
		want   bool
	}

	tests := []testCase{
		{name: "Empty", filter: transaction.ListFilter{}, want: true},
		{name: "StartInclusive", filter: transaction.ListFilter{StartDate: day("2024-06-15")}, want: true},
		{name: "EndInclusive", filter: transaction.ListFilter{EndDate: day("2024-06-15")}, want: true},
		{name: "BeforeStart", filter: transaction.ListFilter{StartDate: day("2024-06-16")}, want: false},
		{name: "AfterEnd", filter: transaction.ListFilter{EndDate: day("2024-06-14")}, want: false},
		{name: "Month", filter: transaction.ListFilter{Month: new("2024-06")}, want: true},
		{name: "OtherMonth", filter: transaction.ListFilter{Month: new("2024-07")}, want: false},
		{name: "Profissional", filter: transaction.ListFilter{ProfissionalID: &prof}, want: true},
		{name: "OtherProfissional", filter: transaction.ListFilter{ProfissionalID: &other}, want: false},
		{name: "ClienteUnset", filter: transaction.ListFilter{ClienteID: &other}, want: false},
		{name: "MethodUsed", filter: transaction.ListFilter{Method: method(transaction.MethodPix)}, want: true},
		{name: "MethodUnused", filter: transaction.ListFilter{Method: method(transaction.MethodDinheiro)}, want: false},
		{name: "MinTotal", filter: transaction.ListFilter{MinTotal: money("200")}, want: true},
		{name: "MinTotalAbove", filter: transaction.ListFilter{MinTotal: money("200.01")}, want: false},
		{name: "MaxTotalBelow", filter: transaction.ListFilter{MaxTotal: money("199.99")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tx))
		})
	}
}

func TestSort_TiesAreStable(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	a := &transaction.Transaction{ID: uuid.New(), Date: date, CreatedAt: created}
	b := &transaction.Transaction{ID: uuid.New(), Date: date, CreatedAt: created.Add(time.Hour)}
	c := &transaction.Transaction{ID: uuid.New(), Date: date.AddDate(0, 0, 1), CreatedAt: created}

	txs := []*transaction.Transaction{c, b, a}
	transaction.Sort(txs, transaction.OrderAsc)
	assert.Equal(t, []*transaction.Transaction{a, b, c}, txs)

	transaction.Sort(txs, transaction.OrderDesc)
	assert.Equal(t, []*transaction.Transaction{c, b, a}, txs)
}

func TestMethod_Valid(t *testing.T) {
	assert.True(t, transaction.MethodCredito.Valid())
	assert.False(t, transaction.Method("boleto").Valid())
}
