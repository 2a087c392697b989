package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

// entryValues is shared with the form fields, so it lives behind a pointer
// that survives the model being copied on every update.
type entryValues struct {
	date        string
	dinheiro    string
	pix         string
	debito      string
	credito     string
	description string
	confirm     bool
}

func (v *entryValues) amounts() calculation.Amounts {
	return calculation.ParseAmounts(v.dinheiro, v.pix, v.debito, v.credito)
}

// EntryModel records new comandas and previews the split while the amounts are typed.
type EntryModel struct {
	CommonModel
	txService *transaction.Service
	cache     *transaction.Cache

	form   *huh.Form
	vals   *entryValues
	saving bool
	status string
	err    error
}

func NewEntryModel(txSvc *transaction.Service, cache *transaction.Cache) EntryModel {
	m := EntryModel{
		txService: txSvc,
		cache:     cache,
		vals:      &entryValues{date: FormatDate(time.Now())},
	}
	m.form = m.buildForm()

	return m
}

func (m EntryModel) Title() string { return "New Comanda" }

func (m EntryModel) ShortHelp() string {
	return "Esc: back | Enter/Tab: next field"
}

func (m EntryModel) Init() tea.Cmd {
	return m.form.Init()
}

func validateDate(s string) error {
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}

	return nil
}

func (m EntryModel) buildForm() *huh.Form {
	v := m.vals

	atLeastOne := func(string) error {
		if v.amounts().IsZero() {
			return errors.New("at least one payment method must be greater than zero")
		}

		return nil
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Key("date").Title("Date").Placeholder("YYYY-MM-DD").
				Value(&v.date).Validate(validateDate),
			huh.NewInput().Key("dinheiro").Title("Dinheiro").Placeholder("0,00").Value(&v.dinheiro),
			huh.NewInput().Key("pix").Title("Pix").Placeholder("0,00").Value(&v.pix),
			huh.NewInput().Key("debito").Title("Débito").Placeholder("0,00").Value(&v.debito),
			huh.NewInput().Key("credito").Title("Crédito").Placeholder("0,00").
				Value(&v.credito).Validate(atLeastOne),
			huh.NewInput().Key("description").Title("Description (optional)").
				CharLimit(500).Value(&v.description),
			huh.NewConfirm().Key("confirm").Title("Save this comanda?").
				Affirmative("Save").Negative("Discard").Value(&v.confirm),
		),
	).WithWidth(40).WithShowHelp(false)
}

// reset clears the amounts for the next entry and keeps the date.
func (m *EntryModel) reset() tea.Cmd {
	m.vals = &entryValues{date: m.vals.date}
	m.form = m.buildForm()

	return m.form.Init()
}

func (m EntryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case entrySavedMsg:
		m.saving = false

		if msg.err != nil {
			m.err = msg.err
			m.status = ""

			return m, m.reset()
		}

		m.cache.Apply(transaction.InsertChange(msg.tx))
		m.err = nil
		m.status = fmt.Sprintf("Saved %s: bruto %s, líquido %s.",
			FormatDate(msg.tx.Date), FormatMoney(msg.tx.TotalBruto), FormatMoney(msg.tx.TotalLiquido))

		return m, m.reset()

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc && !m.saving {
			return m, Back
		}
	}

	if m.saving {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.vals.confirm {
		m.status = "Discarded."
		return m, m.reset()
	}

	m.saving = true

	return m, m.saveCmd()
}

func (m EntryModel) View() string {
	preview := m.txService.Preview(m.vals.amounts(), calculation.SplitOverride{})

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		m.form.View(),
		"  ",
		panelStyle.Render("Preview\n\n"+renderResult(preview)),
	)

	switch {
	case m.saving:
		content += "\n\nSaving..."
	case m.err != nil:
		content += "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.status != "":
		content += "\n\n" + successStyle.Render(m.status)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

// renderResult lays out the derived values of a calculation.
func renderResult(r calculation.Result) string {
	rows := []struct {
		label string
		value string
	}{
		{"Total bruto", FormatMoney(r.TotalBruto)},
		{"Taxa débito", FormatMoney(r.TaxaDebito)},
		{"Taxa crédito", FormatMoney(r.TaxaCredito)},
		{"Total líquido", FormatMoney(r.TotalLiquido)},
		{fmt.Sprintf("Studio (%s%%)", r.Rates.Studio), FormatMoney(r.StudioShare)},
		{fmt.Sprintf("Edu (%s%%)", r.Rates.Professional), FormatMoney(r.EduShare)},
		{fmt.Sprintf("Kam (%s%% of edu)", r.Rates.Assistant), FormatMoney(r.KamShare)},
	}

	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%-20s %12s\n", row.label, row.value)
	}

	return strings.TrimRight(b.String(), "\n")
}

type entrySavedMsg struct {
	tx  *transaction.Transaction
	err error
}

func (m EntryModel) saveCmd() tea.Cmd {
	params := transaction.CreateParams{
		Date:        strings.TrimSpace(m.vals.date),
		Amounts:     m.vals.amounts(),
		Description: m.vals.description,
	}
	svc := m.txService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		tx, err := svc.Add(ctx, params)

		return entrySavedMsg{tx: tx, err: err}
	}
}
