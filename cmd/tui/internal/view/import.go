package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/comanda/internal/csvio"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateImporting
	importStateConflicts
	importStateResult
)

type ImportModel struct {
	CommonModel
	txService *transaction.Service
	cache     *transaction.Cache

	state      importState
	filePicker filepicker.Model

	fresh        []*transaction.Transaction
	conflicts    []transaction.Conflict
	conflictList list.Model
	selected     map[int]bool
	skipped      []csvio.SkippedRow

	status string
	err    error
}

func NewImportModel(txSvc *transaction.Service, cache *transaction.Cache) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		txService:  txSvc,
		cache:      cache,
		filePicker: fp,
		selected:   make(map[int]bool),
	}
}

func (m ImportModel) Title() string { return "Import CSV" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStateConflicts {
		return "Space: toggle | a: all | n: none | Enter: confirm | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateConflicts {
			return m.updateConflicts(msg)
		}

	case importResultMsg:
		return m.handleImportResult(msg)

	case confirmResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.applyCreated(msg.txs)
		m.status = fmt.Sprintf("Imported %d comandas.", len(msg.txs))

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleImportResult(msg importResultMsg) (tea.Model, tea.Cmd) {
	m.skipped = msg.skipped

	if msg.err != nil {
		m.state = importStateResult
		m.err = msg.err
		m.status = fmt.Sprintf("Error: %v", msg.err)

		return m, nil
	}

	if len(msg.result.Conflicts) == 0 {
		m.state = importStateResult
		m.applyCreated(msg.result.Imported)
		m.status = fmt.Sprintf("Imported %d comandas.", len(msg.result.Imported))

		return m, nil
	}

	m.fresh = msg.result.New
	m.conflicts = msg.result.Conflicts
	m.selected = make(map[int]bool)
	m.state = importStateConflicts

	items := make([]list.Item, len(m.conflicts))
	for i, c := range m.conflicts {
		items[i] = conflictItem{conflict: c, index: i}
	}

	delegate := conflictDelegate{selected: m.selected}
	m.conflictList = list.New(items, delegate, 80, 20)
	m.conflictList.Title = fmt.Sprintf("%d possible duplicates (%d new rows will be imported)", len(m.conflicts), len(m.fresh))
	m.conflictList.SetShowStatusBar(false)
	m.conflictList.SetFilteringEnabled(false)
	m.conflictList.SetShowHelp(false)

	return m, nil
}

func (m ImportModel) applyCreated(txs []*transaction.Transaction) {
	for _, tx := range txs {
		m.cache.Apply(transaction.InsertChange(tx))
	}
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateResult, importStateConflicts:
		m.state = importStateFilePick
		m.err = nil
		m.status = ""
		m.conflicts = nil
		m.fresh = nil
		m.skipped = nil
		m.selected = make(map[int]bool)

		return m, m.filePicker.Init()
	case importStateImporting:
		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateConflicts(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		idx := m.conflictList.Index()
		m.selected[idx] = !m.selected[idx]

		return m, nil
	case "a":
		for i := range m.conflicts {
			m.selected[i] = true
		}

		return m, nil
	case "n":
		for i := range m.conflicts {
			m.selected[i] = false
		}

		return m, nil
	case "enter":
		m.state = importStateImporting
		m.status = "Saving..."

		return m, m.confirmCmd()
	}

	var cmd tea.Cmd
	m.conflictList, cmd = m.conflictList.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			"Select a CSV file (data,dinheiro,pix,debito,credito):\n\n" + m.filePicker.View(),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateConflicts:
		return lipgloss.NewStyle().Padding(1).Render(
			m.conflictList.View() + "\n" + lipgloss.NewStyle().Faint(true).Render("Checked rows are imported anyway."),
		)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewResult() string {
	style := errorStyle
	if m.err == nil {
		style = successStyle
	}

	body := style.Render(m.status)

	if len(m.skipped) > 0 {
		lines := make([]string, 0, len(m.skipped))
		for _, s := range m.skipped {
			lines = append(lines, fmt.Sprintf("  line %d: %s", s.Line, s.Reason))
		}

		body += fmt.Sprintf("\n\nSkipped %d rows:\n%s", len(m.skipped), strings.Join(lines, "\n"))
	}

	return lipgloss.NewStyle().Padding(2).Render(body + "\n\n(Esc to go back)")
}

// Messages

type importResultMsg struct {
	result  *transaction.ImportResult
	skipped []csvio.SkippedRow
	err     error
}

type confirmResultMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	svc := m.txService

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		parsed, err := csvio.Parse(f)
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := svc.ImportBatch(ctx, parsed.Rows)
		if err != nil {
			return importResultMsg{skipped: parsed.Skipped, err: err}
		}

		return importResultMsg{result: result, skipped: parsed.Skipped}
	}
}

// resubmit turns a built but unsaved transaction back into input for CreateBatch.
func resubmit(tx *transaction.Transaction) transaction.CreateParams {
	return transaction.CreateParams{
		Date:    FormatDate(tx.Date),
		Amounts: tx.Amounts,
	}
}

func (m ImportModel) confirmCmd() tea.Cmd {
	params := make([]transaction.CreateParams, 0, len(m.fresh)+len(m.conflicts))
	for _, tx := range m.fresh {
		params = append(params, resubmit(tx))
	}

	for i, c := range m.conflicts {
		if m.selected[i] {
			params = append(params, resubmit(c.Incoming))
		}
	}

	svc := m.txService

	return func() tea.Msg {
		if len(params) == 0 {
			return confirmResultMsg{}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		txs, err := svc.CreateBatch(ctx, params)

		return confirmResultMsg{txs: txs, err: err}
	}
}

// Conflict list item

type conflictItem struct {
	conflict transaction.Conflict
	index    int
}

func (i conflictItem) Title() string       { return "" }
func (i conflictItem) Description() string { return "" }
func (i conflictItem) FilterValue() string { return "" }

type conflictDelegate struct {
	selected map[int]bool
}

func (d conflictDelegate) Height() int                             { return 3 }
func (d conflictDelegate) Spacing() int                            { return 0 }
func (d conflictDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d conflictDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(conflictItem)
	if !ok {
		return
	}

	checkbox := "[ ]"
	if d.selected[item.index] {
		checkbox = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	incoming := item.conflict.Incoming
	existing := item.conflict.Existing

	line1 := fmt.Sprintf("%s%s %s  bruto %s  (din %s pix %s déb %s créd %s)",
		cursor, checkbox,
		FormatDate(incoming.Date),
		FormatMoney(incoming.TotalBruto),
		FormatMoney(incoming.Dinheiro),
		FormatMoney(incoming.Pix),
		FormatMoney(incoming.Debito),
		FormatMoney(incoming.Credito),
	)

	line2 := fmt.Sprintf("      Existing: %s  bruto %s  %s",
		FormatDate(existing.Date),
		FormatMoney(existing.TotalBruto),
		existing.Description,
	)

	fmt.Fprintf(w, "%s\n%s\n", line1, line2)
}
