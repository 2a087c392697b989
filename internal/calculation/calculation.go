package calculation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are the raw payment-method inputs of a single comanda.
type Amounts struct {
	Dinheiro decimal.Decimal `json:"dinheiro"`
	Pix      decimal.Decimal `json:"pix"`
	Debito   decimal.Decimal `json:"debito"`
	Credito  decimal.Decimal `json:"credito"`
}

// Total returns the gross sum of the four methods.
func (a Amounts) Total() decimal.Decimal {
	return a.Dinheiro.Add(a.Pix).Add(a.Debito).Add(a.Credito)
}

// IsZero reports whether every method is zero.
func (a Amounts) IsZero() bool {
	return a.Total().IsZero()
}

// Result is the full set of derived values for one set of amounts.
type Result struct {
	TotalBruto   decimal.Decimal `json:"totalBruto"`
	TaxaDebito   decimal.Decimal `json:"taxaDebito"`
	TaxaCredito  decimal.Decimal `json:"taxaCredito"`
	TotalLiquido decimal.Decimal `json:"totalLiquido"`
	StudioShare  decimal.Decimal `json:"studioShare"`
	EduShare     decimal.Decimal `json:"eduShare"`
	KamShare     decimal.Decimal `json:"kamShare"`
	// Rates are the effective rates applied, after any override.
	Rates Rates `json:"rates"`
}

// Calculate derives fees, net total and the studio/professional/assistant split.
// It has no side effects: the same inputs always produce the same result, so it is used
// both for previews and for the values that get persisted. Negative amounts count as zero.
func Calculate(a Amounts, r Rates) Result {
	a = a.Normalized()

	gross := a.Total()
	debitFee := a.Debito.Mul(fraction(r.DebitFee))
	creditFee := a.Credito.Mul(fraction(r.CreditFee))
	net := gross.Sub(debitFee).Sub(creditFee)
	edu := net.Mul(fraction(r.Professional))

	return Result{
		TotalBruto:   gross,
		TaxaDebito:   debitFee,
		TaxaCredito:  creditFee,
		TotalLiquido: net,
		StudioShare:  net.Mul(fraction(r.Studio)),
		EduShare:     edu,
		KamShare:     edu.Mul(fraction(r.Assistant)),
		Rates:        r,
	}
}

// Normalized returns a copy with negative amounts replaced by zero and every amount
// rounded to centavos, the precision the store keeps.
func (a Amounts) Normalized() Amounts {
	return Amounts{
		Dinheiro: nonNegative(a.Dinheiro),
		Pix:      nonNegative(a.Pix),
		Debito:   nonNegative(a.Debito),
		Credito:  nonNegative(a.Credito),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}

	return d.Round(2)
}

// thousandsOnly matches dot-grouped integers such as "1.234" or "12.345.678".
var thousandsOnly = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// ParseAmount parses user input into a non-negative amount rounded to centavos.
// Accepted forms: "10.50", "10,50", "1.234,56", "1.234", "R$ 12". Dots followed by groups of
// exactly three digits with no comma are thousands separators, so "1.234" is 1234 and not 1.234.
// Anything unparsable or negative yields zero.
func ParseAmount(s string) decimal.Decimal {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "R$")
	clean = strings.ReplaceAll(clean, " ", "")

	if clean == "" {
		return decimal.Zero
	}

	// A comma means Brazilian notation: dots group thousands, the comma is the decimal separator.
	if strings.Contains(clean, ",") || thousandsOnly.MatchString(clean) {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}

	return nonNegative(d)
}

// ParseAmounts parses the four raw inputs in dinheiro, pix, debito, credito order.
func ParseAmounts(dinheiro, pix, debito, credito string) Amounts {
	return Amounts{
		Dinheiro: ParseAmount(dinheiro),
		Pix:      ParseAmount(pix),
		Debito:   ParseAmount(debito),
		Credito:  ParseAmount(credito),
	}
}
