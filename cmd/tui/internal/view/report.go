package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/report"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

// ReportModel shows the monthly summary, the per-professional breakdown and the forecast
// for one month at a time.
type ReportModel struct {
	CommonModel
	reportService *report.Service

	month   time.Time
	seq     int
	loading bool
	spinner spinner.Model

	monthly       *report.MonthlyData
	professionals []report.ProfessionalSummary
	forecast      *report.Forecast
	err           error
}

func NewReportModel(svc *report.Service) ReportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	now := time.Now()

	return ReportModel{
		reportService: svc,
		month:         time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		loading:       true,
		spinner:       s,
	}
}

func (m ReportModel) Title() string { return "Reports" }

func (m ReportModel) ShortHelp() string {
	return "Esc: back | ←/→: month | r: reload"
}

func (m ReportModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd(m.seq))
}

func (m ReportModel) reload() (ReportModel, tea.Cmd) {
	m.seq++
	m.loading = true

	return m, tea.Batch(m.spinner.Tick, m.loadCmd(m.seq))
}

func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}

		m.loading = false
		m.err = msg.err
		m.monthly = msg.monthly
		m.professionals = msg.professionals
		m.forecast = msg.forecast

		return m, nil

	case ChangeMsg, ResyncMsg:
		// The forecast spans earlier months too, so any change can move it.
		return m.reload()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "left", "h":
			m.month = m.month.AddDate(0, -1, 0)
			return m.reload()
		case "right", "l":
			m.month = m.month.AddDate(0, 1, 0)
			return m.reload()
		case "r":
			return m.reload()
		}

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ReportModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("Report " + transaction.MonthKey(m.month))

	if m.loading && m.monthly == nil {
		return lipgloss.NewStyle().Padding(1).Render(title + "\n\n" + m.spinner.View() + " Loading...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(1).Render(title + "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.loading {
		title += " " + m.spinner.View()
	}

	sections := []string{title}

	if m.monthly != nil {
		sections = append(sections, panelStyle.Render(monthlyView(*m.monthly)))
	}

	if len(m.professionals) > 0 {
		sections = append(sections, panelStyle.Render(professionalsView(m.professionals)))
	}

	if m.forecast != nil {
		sections = append(sections, panelStyle.Render(forecastView(*m.forecast)))
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func monthlyView(d report.MonthlyData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Comandas %d | Ticket médio %s\n\n", d.Count, FormatMoney(d.TicketMedio))
	fmt.Fprintf(&b, "%-10s %12s    %-14s %12s\n", "Dinheiro", FormatMoney(d.TotalDinheiro), "Total bruto", FormatMoney(d.TotalBruto))
	fmt.Fprintf(&b, "%-10s %12s    %-14s %12s\n", "Pix", FormatMoney(d.TotalPix), "Taxas", FormatMoney(d.TotalTaxas))
	fmt.Fprintf(&b, "%-10s %12s    %-14s %12s\n", "Débito", FormatMoney(d.TotalDebito), "Total líquido", FormatMoney(d.TotalLiquido))
	fmt.Fprintf(&b, "%-10s %12s    %-14s %12s\n", "Crédito", FormatMoney(d.TotalCredito), "Studio", FormatMoney(d.TotalStudio))
	fmt.Fprintf(&b, "%-10s %12s    %-14s %12s\n", "", "", "Edu", FormatMoney(d.TotalEdu))
	fmt.Fprintf(&b, "%-10s %12s    %-14s %12s", "", "", "Kam", FormatMoney(d.TotalKam))

	return b.String()
}

func professionalsView(ps []report.ProfessionalSummary) string {
	var b strings.Builder

	b.WriteString("By professional\n")

	for _, p := range ps {
		name := "unassigned"
		if p.ProfissionalID != nil {
			name = p.ProfissionalID.String()[:8]
		}

		fmt.Fprintf(&b, "\n%-10s %3d  bruto %12s  edu %10s  kam %9s",
			name, p.Count, FormatMoney(p.TotalBruto), FormatMoney(p.EduShare), FormatMoney(p.KamShare))
	}

	return b.String()
}

const barWidth = 30

func forecastView(f report.Forecast) string {
	var b strings.Builder

	peak := decimal.Zero
	for _, p := range f.Trend {
		peak = decimal.Max(peak, p.Revenue)
	}

	b.WriteString("Trend\n\n")

	for _, p := range f.Trend {
		width := 0
		if peak.IsPositive() {
			width = int(p.Revenue.Div(peak).Mul(decimal.NewFromInt(barWidth)).IntPart())
		}

		fmt.Fprintf(&b, "%s %-*s %12s %8s\n",
			p.Period, barWidth, strings.Repeat("█", width), FormatMoney(p.Revenue), FormatPercent(p.Growth))
	}

	e := f.Estimate
	fmt.Fprintf(&b, "\nNext month estimate: %s (confidence %s%%)\n",
		activeStyle(FormatMoney(e.NextPeriodRevenue)), e.Confidence.StringFixed(0))

	if len(e.Factors) > 0 {
		fmt.Fprintf(&b, "Factors: %s\n", strings.Join(e.Factors, ", "))
	}

	b.WriteString(e.Recommendation)

	return b.String()
}

type reportLoadedMsg struct {
	seq           int
	monthly       *report.MonthlyData
	professionals []report.ProfessionalSummary
	forecast      *report.Forecast
	err           error
}

func (m ReportModel) loadCmd(seq int) tea.Cmd {
	svc := m.reportService
	month := m.month

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		key := transaction.MonthKey(month)

		monthly, err := svc.Monthly(ctx, key)
		if err != nil {
			return reportLoadedMsg{seq: seq, err: err}
		}

		professionals, err := svc.Professionals(ctx, key)
		if err != nil {
			return reportLoadedMsg{seq: seq, err: err}
		}

		forecast, err := svc.Forecast(ctx, month)
		if err != nil {
			return reportLoadedMsg{seq: seq, err: err}
		}

		return reportLoadedMsg{seq: seq, monthly: monthly, professionals: professionals, forecast: forecast}
	}
}
