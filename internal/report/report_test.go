package report_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

func build(t *testing.T, date, dinheiro, pix, debito, credito string) *transaction.Transaction {
	t.Helper()

	tx, err := transaction.Build(transaction.CreateParams{
		Date:    date,
		Amounts: calculation.ParseAmounts(dinheiro, pix, debito, credito),
	}, calculation.DefaultRates(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	return tx
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "expected %s, got %s", want, got)
}
