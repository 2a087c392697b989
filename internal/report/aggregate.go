package report

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

// MonthlyData is the summary of one month of transactions.
type MonthlyData struct {
	Month            string          `json:"month"`
	Count            int             `json:"count"`
	TotalBruto       decimal.Decimal `json:"totalBruto"`
	TotalLiquido     decimal.Decimal `json:"totalLiquido"`
	TotalStudio      decimal.Decimal `json:"totalStudio"`
	TotalEdu         decimal.Decimal `json:"totalEdu"`
	TotalKam         decimal.Decimal `json:"totalKam"`
	TotalTaxas       decimal.Decimal `json:"totalTaxas"`
	TotalTaxaDebito  decimal.Decimal `json:"totalTaxaDebito"`
	TotalTaxaCredito decimal.Decimal `json:"totalTaxaCredito"`
	TotalDinheiro    decimal.Decimal `json:"totalDinheiro"`
	TotalPix         decimal.Decimal `json:"totalPix"`
	TotalDebito      decimal.Decimal `json:"totalDebito"`
	TotalCredito     decimal.Decimal `json:"totalCredito"`
	TicketMedio      decimal.Decimal `json:"ticketMedio"`

	Transactions []*transaction.Transaction `json:"transactions"`
}

// Aggregate sums txs into a MonthlyData labelled month. Callers choose which
// transactions belong to the month; the sums do not depend on their order.
func Aggregate(month string, txs []*transaction.Transaction) MonthlyData {
	m := MonthlyData{
		Month:        month,
		Count:        len(txs),
		Transactions: txs,
	}

	for _, tx := range txs {
		m.TotalBruto = m.TotalBruto.Add(tx.TotalBruto)
		m.TotalLiquido = m.TotalLiquido.Add(tx.TotalLiquido)
		m.TotalStudio = m.TotalStudio.Add(tx.StudioShare)
		m.TotalEdu = m.TotalEdu.Add(tx.EduShare)
		m.TotalKam = m.TotalKam.Add(tx.KamShare)
		m.TotalTaxaDebito = m.TotalTaxaDebito.Add(tx.TaxaDebito)
		m.TotalTaxaCredito = m.TotalTaxaCredito.Add(tx.TaxaCredito)
		m.TotalDinheiro = m.TotalDinheiro.Add(tx.Dinheiro)
		m.TotalPix = m.TotalPix.Add(tx.Pix)
		m.TotalDebito = m.TotalDebito.Add(tx.Debito)
		m.TotalCredito = m.TotalCredito.Add(tx.Credito)
	}

	m.TotalTaxas = m.TotalTaxaDebito.Add(m.TotalTaxaCredito)
	m.TicketMedio = average(m.TotalBruto, m.Count)

	return m
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}

	return total.Div(decimal.NewFromInt(int64(count)))
}

// ProfessionalSummary totals the work of one professional. A nil ProfissionalID
// collects transactions that were not assigned to anyone.
type ProfessionalSummary struct {
	ProfissionalID *uuid.UUID      `json:"profissionalId"`
	Count          int             `json:"count"`
	TotalBruto     decimal.Decimal `json:"totalBruto"`
	TotalLiquido   decimal.Decimal `json:"totalLiquido"`
	EduShare       decimal.Decimal `json:"eduShare"`
	KamShare       decimal.Decimal `json:"kamShare"`
}

// ByProfessional groups txs per professional, largest gross first.
func ByProfessional(txs []*transaction.Transaction) []ProfessionalSummary {
	buckets := make(map[uuid.UUID]*ProfessionalSummary)

	for _, tx := range txs {
		var key uuid.UUID
		if tx.ProfissionalID != nil {
			key = *tx.ProfissionalID
		}

		s, ok := buckets[key]
		if !ok {
			s = &ProfessionalSummary{}
			if tx.ProfissionalID != nil {
				s.ProfissionalID = new(key)
			}

			buckets[key] = s
		}

		s.Count++
		s.TotalBruto = s.TotalBruto.Add(tx.TotalBruto)
		s.TotalLiquido = s.TotalLiquido.Add(tx.TotalLiquido)
		s.EduShare = s.EduShare.Add(tx.EduShare)
		s.KamShare = s.KamShare.Add(tx.KamShare)
	}

	out := make([]ProfessionalSummary, 0, len(buckets))
	for _, s := range buckets {
		out = append(out, *s)
	}

	slices.SortFunc(out, func(a, b ProfessionalSummary) int {
		if c := b.TotalBruto.Cmp(a.TotalBruto); c != 0 {
			return c
		}

		return cmp.Compare(idString(a.ProfissionalID), idString(b.ProfissionalID))
	})

	return out
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}

	return id.String()
}
