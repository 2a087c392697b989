package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/comanda/internal/csvio"
	"github.com/MrJamesThe3rd/comanda/internal/report"
)

const (
	SummarySheet      = "Resumo"
	TransactionsSheet = "Transacoes"

	// numFmtMoney is the built-in "#,##0.00" format.
	numFmtMoney = 4
)

// Write renders a month as an xlsx workbook: a summary sheet and one row per transaction
// using the CSV export columns.
func Write(w io.Writer, data report.MonthlyData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	if _, err := f.NewSheet(TransactionsSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	if err := writeSummary(f, data, money); err != nil {
		return err
	}

	if err := writeTransactions(f, data, money); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}

func writeSummary(f *excelize.File, data report.MonthlyData, money int) error {
	rows := []struct {
		label string
		value decimal.Decimal
	}{
		{"Total bruto", data.TotalBruto},
		{"Dinheiro", data.TotalDinheiro},
		{"Pix", data.TotalPix},
		{"Débito", data.TotalDebito},
		{"Crédito", data.TotalCredito},
		{"Taxa débito", data.TotalTaxaDebito},
		{"Taxa crédito", data.TotalTaxaCredito},
		{"Total taxas", data.TotalTaxas},
		{"Total líquido", data.TotalLiquido},
		{"Studio", data.TotalStudio},
		{"Profissional", data.TotalEdu},
		{"Assistente", data.TotalKam},
		{"Ticket médio", data.TicketMedio},
	}

	if err := f.SetSheetRow(SummarySheet, "A1", &[]any{"Mês", data.Month}); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	if err := f.SetSheetRow(SummarySheet, "A2", &[]any{"Comandas", data.Count}); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	for i, r := range rows {
		cell := fmt.Sprintf("A%d", i+3)
		if err := f.SetSheetRow(SummarySheet, cell, &[]any{r.label, r.value.InexactFloat64()}); err != nil {
			return fmt.Errorf("writing summary row %q: %w", r.label, err)
		}
	}

	if err := f.SetCellStyle(SummarySheet, "B3", fmt.Sprintf("B%d", len(rows)+2), money); err != nil {
		return fmt.Errorf("styling summary: %w", err)
	}

	return f.SetColWidth(SummarySheet, "A", "B", 18)
}

func writeTransactions(f *excelize.File, data report.MonthlyData, money int) error {
	header := make([]any, len(csvio.Header))
	for i, h := range csvio.Header {
		header[i] = h
	}

	if err := f.SetSheetRow(TransactionsSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, tx := range data.Transactions {
		row := []any{
			tx.Date.Format(time.DateOnly),
			tx.Dinheiro.InexactFloat64(), tx.Pix.InexactFloat64(), tx.Debito.InexactFloat64(), tx.Credito.InexactFloat64(),
			tx.TotalBruto.InexactFloat64(), tx.TaxaDebito.InexactFloat64(), tx.TaxaCredito.InexactFloat64(),
			tx.TotalLiquido.InexactFloat64(), tx.StudioShare.InexactFloat64(), tx.EduShare.InexactFloat64(),
			tx.KamShare.InexactFloat64(),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(TransactionsSheet, cell, &row); err != nil {
			return fmt.Errorf("writing transaction %s: %w", tx.ID, err)
		}
	}

	if n := len(data.Transactions); n > 0 {
		last, err := excelize.CoordinatesToCellName(len(csvio.Header), n+1)
		if err != nil {
			return err
		}

		if err := f.SetCellStyle(TransactionsSheet, "B2", last, money); err != nil {
			return fmt.Errorf("styling transactions: %w", err)
		}
	}

	return f.SetColWidth(TransactionsSheet, "A", "L", 14)
}
