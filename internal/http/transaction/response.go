package transaction

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

// Amount accepts a JSON number or a string in any form calculation.ParseAmount takes.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}

	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}

	a.Decimal = calculation.ParseAmount(s)

	return nil
}

// AmountsRequest is the raw payment input shared by create, preview and import confirm.
type AmountsRequest struct {
	Dinheiro Amount `json:"dinheiro"`
	Pix      Amount `json:"pix"`
	Debito   Amount `json:"debito"`
	Credito  Amount `json:"credito"`
}

func (a AmountsRequest) Amounts() calculation.Amounts {
	return calculation.Amounts{
		Dinheiro: a.Dinheiro.Decimal,
		Pix:      a.Pix.Decimal,
		Debito:   a.Debito.Decimal,
		Credito:  a.Credito.Decimal,
	}
}

type splitRequest struct {
	StudioRate *decimal.Decimal `json:"studioRate"`
	EduRate    *decimal.Decimal `json:"eduRate"`
	KamRate    *decimal.Decimal `json:"kamRate"`
}

func (s *splitRequest) override() calculation.SplitOverride {
	if s == nil {
		return calculation.SplitOverride{}
	}

	return calculation.SplitOverride{Studio: s.StudioRate, Professional: s.EduRate, Assistant: s.KamRate}
}

type ratesResponse struct {
	DebitFeeRate  decimal.Decimal `json:"debitFeeRate"`
	CreditFeeRate decimal.Decimal `json:"creditFeeRate"`
	StudioRate    decimal.Decimal `json:"studioRate"`
	EduRate       decimal.Decimal `json:"eduRate"`
	KamRate       decimal.Decimal `json:"kamRate"`
}

type resultResponse struct {
	TotalBruto   decimal.Decimal `json:"totalBruto"`
	TaxaDebito   decimal.Decimal `json:"taxaDebito"`
	TaxaCredito  decimal.Decimal `json:"taxaCredito"`
	TotalLiquido decimal.Decimal `json:"totalLiquido"`
	StudioShare  decimal.Decimal `json:"studioShare"`
	EduShare     decimal.Decimal `json:"eduShare"`
	KamShare     decimal.Decimal `json:"kamShare"`
	Rates        ratesResponse   `json:"rates"`
}

func toResultResponse(r calculation.Result) resultResponse {
	return resultResponse{
		TotalBruto:   r.TotalBruto,
		TaxaDebito:   r.TaxaDebito,
		TaxaCredito:  r.TaxaCredito,
		TotalLiquido: r.TotalLiquido,
		StudioShare:  r.StudioShare,
		EduShare:     r.EduShare,
		KamShare:     r.KamShare,
		Rates: ratesResponse{
			DebitFeeRate:  r.Rates.DebitFee,
			CreditFeeRate: r.Rates.CreditFee,
			StudioRate:    r.Rates.Studio,
			EduRate:       r.Rates.Professional,
			KamRate:       r.Rates.Assistant,
		},
	}
}

type Response struct {
	ID       uuid.UUID       `json:"id"`
	Date     string          `json:"date"`
	Month    string          `json:"month"`
	Year     int             `json:"year"`
	Dinheiro decimal.Decimal `json:"dinheiro"`
	Pix      decimal.Decimal `json:"pix"`
	Debito   decimal.Decimal `json:"debito"`
	Credito  decimal.Decimal `json:"credito"`
	resultResponse

	ClienteID      *uuid.UUID `json:"clienteId,omitempty"`
	ProfissionalID *uuid.UUID `json:"profissionalId,omitempty"`
	Description    string     `json:"description,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func ToResponse(tx *transaction.Transaction) Response {
	return Response{
		ID:             tx.ID,
		Date:           tx.Date.Format(time.DateOnly),
		Month:          tx.Month,
		Year:           tx.Year,
		Dinheiro:       tx.Dinheiro,
		Pix:            tx.Pix,
		Debito:         tx.Debito,
		Credito:        tx.Credito,
		resultResponse: toResultResponse(tx.Result),
		ClienteID:      tx.ClienteID,
		ProfissionalID: tx.ProfissionalID,
		Description:    tx.Description,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
	}
}

func ToResponseList(txs []*transaction.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}
