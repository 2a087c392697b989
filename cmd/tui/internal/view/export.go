package view

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/comanda/internal/csvio"
	"github.com/MrJamesThe3rd/comanda/internal/report"
	"github.com/MrJamesThe3rd/comanda/internal/spreadsheet"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

const exportTimeout = 2 * time.Minute

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

type exportState int

const (
	exportStateForm exportState = iota
	exportStateExporting
	exportStateResult
)

type exportValues struct {
	format string
	month  string
	dir    string
}

type ExportModel struct {
	CommonModel
	txService     *transaction.Service
	reportService *report.Service

	state   exportState
	form    *huh.Form
	vals    *exportValues
	spinner spinner.Model

	path string
	err  error
}

func NewExportModel(txSvc *transaction.Service, reportSvc *report.Service) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	m := ExportModel{
		txService:     txSvc,
		reportService: reportSvc,
		vals: &exportValues{
			format: formatCSV,
			month:  transaction.MonthKey(time.Now()),
			dir:    "./exports",
		},
		spinner: s,
	}
	m.form = m.buildForm()

	return m
}

func (m ExportModel) Title() string { return "Export" }

func (m ExportModel) ShortHelp() string {
	switch m.state {
	case exportStateResult:
		return "Esc: back to menu"
	case exportStateExporting:
		return "Exporting..."
	}

	return "Esc: back | Enter: confirm"
}

func (m ExportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ExportModel) buildForm() *huh.Form {
	v := m.vals

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("format").
				Title("Format").
				Options(
					huh.NewOption("CSV (comandas of the month)", formatCSV),
					huh.NewOption("Excel (summary and comandas)", formatXLSX),
				).
				Value(&v.format),
			huh.NewInput().
				Key("month").
				Title("Month").
				Placeholder("YYYY-MM").
				Value(&v.month).
				Validate(func(s string) error {
					_, err := report.ParseMonth(strings.TrimSpace(s))
					return err
				}),
			huh.NewInput().
				Key("dir").
				Title("Output Directory").
				Description("Directory will be created if it doesn't exist").
				Placeholder("./exports").
				Value(&v.dir),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case exportStateForm:
		return m.updateForm(msg)
	case exportStateExporting:
		return m.updateExporting(msg)
	case exportStateResult:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	return m, nil
}

func (m ExportModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = exportStateExporting
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.runExportCmd(*m.vals))
}

func (m ExportModel) updateExporting(msg tea.Msg) (tea.Model, tea.Cmd) {
	if result, ok := msg.(exportResultMsg); ok {
		m.state = exportStateResult
		m.err = result.err
		m.path = result.path

		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)

	return m, cmd
}

func (m ExportModel) View() string {
	switch m.state {
	case exportStateForm:
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	case exportStateExporting:
		return lipgloss.NewStyle().Padding(1).Render(m.spinner.View() + " Exporting...")
	case exportStateResult:
		if m.err != nil {
			return lipgloss.NewStyle().Padding(1).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}

		return lipgloss.NewStyle().Padding(1).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).Render("Export Complete!"),
				"",
				"Written to "+m.path,
			),
		)
	}

	return ""
}

type exportResultMsg struct {
	path string
	err  error
}

func (m ExportModel) runExportCmd(v exportValues) tea.Cmd {
	txSvc, reportSvc := m.txService, m.reportService

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		month := strings.TrimSpace(v.month)

		var buf bytes.Buffer

		var err error

		if v.format == formatXLSX {
			err = writeXLSX(ctx, reportSvc, month, &buf)
		} else {
			err = writeCSV(ctx, txSvc, month, &buf)
		}

		if err != nil {
			return exportResultMsg{err: err}
		}

		if err := os.MkdirAll(v.dir, 0o755); err != nil {
			return exportResultMsg{err: fmt.Errorf("creating %s: %w", v.dir, err)}
		}

		path := filepath.Join(v.dir, fmt.Sprintf("comandas_%s.%s", month, v.format))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return exportResultMsg{err: fmt.Errorf("writing %s: %w", path, err)}
		}

		return exportResultMsg{path: path}
	}
}

func writeCSV(ctx context.Context, svc *transaction.Service, month string, buf *bytes.Buffer) error {
	txs, err := svc.List(ctx, transaction.ListFilter{Month: &month, Order: transaction.OrderAsc})
	if err != nil {
		return err
	}

	return csvio.Export(buf, txs)
}

func writeXLSX(ctx context.Context, svc *report.Service, month string, buf *bytes.Buffer) error {
	data, err := svc.Monthly(ctx, month)
	if err != nil {
		return err
	}

	return spreadsheet.Write(buf, *data)
}
