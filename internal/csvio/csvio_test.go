package csvio_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
	"github.com/MrJamesThe3rd/comanda/internal/csvio"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

func build(t *testing.T, date, dinheiro, pix, debito, credito string) *transaction.Transaction {
	t.Helper()

	tx, err := transaction.Build(transaction.CreateParams{
		Date:    date,
		Amounts: calculation.ParseAmounts(dinheiro, pix, debito, credito),
	}, calculation.DefaultRates(), time.Now())
	require.NoError(t, err)

	return tx
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer

	err := csvio.Export(&buf, []*transaction.Transaction{build(t, "2024-01-15", "100", "200", "300", "400")})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvio.Header, ","), lines[0])
	assert.Equal(t, "2024-01-15,100,200,300,400,1000,4.83,14.04,981.13,588.678,392.452,39.2452", lines[1])
}

func TestExportParse_RoundTrip(t *testing.T) {
	originals := []*transaction.Transaction{
		build(t, "2024-01-15", "100", "200", "300", "400"),
		build(t, "2024-01-16", "33,33", "", "", "0.01"),
		build(t, "2024-02-01", "", "", "1.234,56", ""),
	}

	var buf bytes.Buffer
	require.NoError(t, csvio.Export(&buf, originals))

	res, err := csvio.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, res.Rows, len(originals))
	assert.Empty(t, res.Skipped)

	for i, params := range res.Rows {
		got, err := transaction.Build(params, calculation.DefaultRates(), time.Now())
		require.NoError(t, err)

		want := originals[i]
		assert.NotEqual(t, want.ID, got.ID)
		assert.True(t, want.Date.Equal(got.Date))

		for name, pair := range map[string][2]string{
			"totalBruto":   {want.TotalBruto.String(), got.TotalBruto.String()},
			"taxaDebito":   {want.TaxaDebito.String(), got.TaxaDebito.String()},
			"taxaCredito":  {want.TaxaCredito.String(), got.TaxaCredito.String()},
			"totalLiquido": {want.TotalLiquido.String(), got.TotalLiquido.String()},
			"studioShare":  {want.StudioShare.String(), got.StudioShare.String()},
			"eduShare":     {want.EduShare.String(), got.EduShare.String()},
			"kamShare":     {want.KamShare.String(), got.KamShare.String()},
		} {
			assert.Equal(t, pair[0], pair[1], "row %d %s", i, name)
		}
	}
}

func TestParse(t *testing.T) {
	type testCase struct {
		name        string
		input       string
		wantRows    int
		wantSkipped []int
		wantErr     bool
	}

	tests := []testCase{
		{
			name:     "IgnoresDerivedColumns",
			input:    "data,dinheiro,pix,debito,credito,total_bruto\n2024-03-01,10,0,0,0,99999\n",
			wantRows: 1,
		},
		{
			name:        "SkipsBadDateAndZeroRows",
			input:       "data,dinheiro,pix,debito,credito\n2024-03-01,10,,,\nontem,5,,,\n2024-03-02,0,0,0,0\n\n2024-03-03,abc,7,,\n",
			wantRows:    2,
			wantSkipped: []int{3, 4},
		},
		{
			name:     "BrazilianSpreadsheet",
			input:    "Data;Dinheiro;Pix;Débito;Crédito\n01/03/2024;1.234,56;;;\n02/03/2024;;R$ 50;;\n",
			wantRows: 2,
		},
		{
			name:     "ShortRows",
			input:    "data,dinheiro\n2024-03-01,10\n",
			wantRows: 1,
		},
		{
			name:    "HeaderOnly",
			input:   "data,dinheiro,pix,debito,credito\n",
			wantErr: true,
		},
		{
			name:    "Empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "NoValidRows",
			input:   "data,dinheiro,pix,debito,credito\n2024-03-01,0,0,0,0\nx,1,1,1,1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := csvio.Parse(strings.NewReader(tt.input))

			if tt.wantErr {
				assert.ErrorIs(t, err, csvio.ErrImport)

				var importErr *csvio.ImportError
				assert.ErrorAs(t, err, &importErr)

				return
			}

			require.NoError(t, err)
			assert.Len(t, res.Rows, tt.wantRows)

			var lines []int
			for _, s := range res.Skipped {
				lines = append(lines, s.Line)
			}

			assert.Equal(t, tt.wantSkipped, lines)
		})
	}
}

func TestParse_NormalizesDates(t *testing.T) {
	res, err := csvio.Parse(strings.NewReader("Data;Dinheiro;Pix;Débito;Crédito\n31/12/2023;1.234,56;;;\n"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	assert.Equal(t, "2023-12-31", res.Rows[0].Date)
	assert.True(t, res.Rows[0].Amounts.Dinheiro.Equal(calculation.ParseAmount("1234.56")))
}
