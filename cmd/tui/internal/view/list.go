package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

type listState int

const (
	listStateTimeframe listState = iota
	listStateBrowse
	listStateEdit
	listStateDelete
)

// ListModel browses stored comandas. Rows come from the shared cache, so writes made
// elsewhere show up as soon as their change event arrives.
type ListModel struct {
	CommonModel
	txService *transaction.Service
	cache     *transaction.Cache

	state  listState
	picker TimeframePicker
	table  table.Model
	rows   []*transaction.Transaction

	rangeLabel string
	start, end *time.Time
	methodIdx  int
	order      transaction.Order

	// seq numbers loads; only the latest one is applied.
	seq     int
	loading bool

	form     *huh.Form
	editVals *entryValues
	editing  *transaction.Transaction

	status string
	err    error
}

func NewListModel(txSvc *transaction.Service, cache *transaction.Cache) ListModel {
	columns := []table.Column{
		{Title: "Date", Width: 10},
		{Title: "Dinheiro", Width: 10},
		{Title: "Pix", Width: 10},
		{Title: "Débito", Width: 10},
		{Title: "Crédito", Width: 10},
		{Title: "Bruto", Width: 11},
		{Title: "Líquido", Width: 11},
		{Title: "Edu", Width: 10},
		{Title: "Kam", Width: 9},
		{Title: "Description", Width: 24},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ListModel{
		txService: txSvc,
		cache:     cache,
		picker:    NewTimeframePicker(TimeframeThisMonth),
		table:     t,
		order:     transaction.OrderDesc,
	}
}

func (m ListModel) Title() string { return "Comandas" }

func (m ListModel) ShortHelp() string {
	switch m.state {
	case listStateTimeframe:
		return "Esc: back | Enter: select"
	case listStateEdit, listStateDelete:
		return "Navigate form | Esc: cancel"
	}

	return "Esc: timeframe | e: edit | x: delete | m: method | o: order | r: reload"
}

func (m ListModel) Init() tea.Cmd {
	return nil
}

func (m ListModel) filter() transaction.ListFilter {
	f := transaction.ListFilter{StartDate: m.start, EndDate: m.end, Order: m.order}

	if m.methodIdx > 0 {
		f.Method = new(transaction.Methods[m.methodIdx-1])
	}

	return f
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.rangeLabel = msg.Label
		m.start, m.end = nil, nil

		if !msg.All {
			m.start, m.end = &msg.Start, &msg.End
		}

		m.state = listStateBrowse
		m.table.Focus()

		return m.reload()

	case listLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}

		m.loading = false

		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.cache.Load(msg.txs)
		m.refreshTable()

		return m, nil

	case ChangeMsg:
		m.refreshTable()
		return m, nil

	case ResyncMsg:
		if m.rangeLabel == "" {
			return m, nil
		}

		return m.reload()

	case listSavedMsg:
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.cache.Apply(msg.change)
		m.status = msg.status
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-12, 5))
		return m, nil
	}

	switch m.state {
	case listStateTimeframe:
		return m.updateTimeframe(msg)
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateEdit, listStateDelete:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m ListModel) reload() (ListModel, tea.Cmd) {
	m.seq++
	m.loading = true

	return m, m.loadCmd(m.seq, transaction.ListFilter{StartDate: m.start, EndDate: m.end})
}

func (m ListModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.picker.IsSelecting() {
		return m, Back
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	return m, cmd
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = listStateTimeframe
			m.picker.Reset()
			m.table.Blur()

			return m, nil
		case "r":
			return m.reload()
		case "m":
			m.methodIdx = (m.methodIdx + 1) % (len(transaction.Methods) + 1)
			m.refreshTable()

			return m, nil
		case "o":
			if m.order == transaction.OrderDesc {
				m.order = transaction.OrderAsc
			} else {
				m.order = transaction.OrderDesc
			}

			m.refreshTable()

			return m, nil
		case "e", "enter":
			return m.startEdit()
		case "x":
			return m.startDelete()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ListModel) current() *transaction.Transaction {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.rows) {
		return nil
	}

	return m.rows[idx]
}

func (m ListModel) startEdit() (tea.Model, tea.Cmd) {
	tx := m.current()
	if tx == nil {
		return m, nil
	}

	m.editing = tx
	m.editVals = &entryValues{
		date:        FormatDate(tx.Date),
		dinheiro:    tx.Dinheiro.String(),
		pix:         tx.Pix.String(),
		debito:      tx.Debito.String(),
		credito:     tx.Credito.String(),
		description: tx.Description,
	}

	v := m.editVals
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Key("date").Title("Date").Value(&v.date).Validate(validateDate),
			huh.NewInput().Key("dinheiro").Title("Dinheiro").Value(&v.dinheiro),
			huh.NewInput().Key("pix").Title("Pix").Value(&v.pix),
			huh.NewInput().Key("debito").Title("Débito").Value(&v.debito),
			huh.NewInput().Key("credito").Title("Crédito").Value(&v.credito),
			huh.NewInput().Key("description").Title("Description").CharLimit(500).Value(&v.description),
		),
	).WithWidth(40).WithShowHelp(false)

	m.state = listStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) startDelete() (tea.Model, tea.Cmd) {
	tx := m.current()
	if tx == nil {
		return m, nil
	}

	m.editing = tx
	confirmed := false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("delete").
				Title(fmt.Sprintf("Delete comanda of %s (%s)?", FormatDate(tx.Date), FormatMoney(tx.TotalBruto))).
				Affirmative("Delete").
				Negative("Keep").
				Value(&confirmed),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = listStateDelete
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == listStateEdit {
		return m, m.saveCmd()
	}

	if !m.form.GetBool("delete") {
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	return m, m.deleteCmd()
}

func (m ListModel) View() string {
	if m.state == listStateTimeframe {
		return lipgloss.NewStyle().Padding(1).Render(m.picker.View())
	}

	method := "All"
	if m.methodIdx > 0 {
		method = string(transaction.Methods[m.methodIdx-1])
	}

	header := fmt.Sprintf("Range: %s | [m] Method: %s | [o] Order: %s | %d comandas",
		activeStyle(m.rangeLabel), activeStyle(method), activeStyle(string(m.order)), len(m.rows))

	if m.loading {
		header += " | loading..."
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
		m.totalsView(),
	)

	side := ""

	switch {
	case m.form != nil:
		side = panelStyle.Width(44).Render(m.form.View())
	case m.current() != nil:
		side = panelStyle.Render(renderResult(m.current().Result))
	}

	if side != "" {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, " ", side)
	}

	if m.err != nil {
		content = errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n" + content
	} else if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ListModel) totalsView() string {
	bruto, liquido := decimal.Zero, decimal.Zero
	for _, tx := range m.rows {
		bruto = bruto.Add(tx.TotalBruto)
		liquido = liquido.Add(tx.TotalLiquido)
	}

	return fmt.Sprintf("Total bruto %s | Total líquido %s", FormatMoney(bruto), FormatMoney(liquido))
}

func (m *ListModel) refreshTable() {
	m.rows = m.cache.List(m.filter())

	rows := make([]table.Row, 0, len(m.rows))
	for _, tx := range m.rows {
		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			FormatMoney(tx.Dinheiro),
			FormatMoney(tx.Pix),
			FormatMoney(tx.Debito),
			FormatMoney(tx.Credito),
			FormatMoney(tx.TotalBruto),
			FormatMoney(tx.TotalLiquido),
			FormatMoney(tx.EduShare),
			FormatMoney(tx.KamShare),
			tx.Description,
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Messages

type listLoadedMsg struct {
	seq int
	txs []*transaction.Transaction
	err error
}

func (m ListModel) loadCmd(seq int, filter transaction.ListFilter) tea.Cmd {
	svc := m.txService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := svc.List(ctx, filter)

		return listLoadedMsg{seq: seq, txs: txs, err: err}
	}
}

type listSavedMsg struct {
	change transaction.Change
	status string
	err    error
}

func (m ListModel) saveCmd() tea.Cmd {
	id := m.editing.ID
	previousMonth := m.editing.Month
	v := m.editVals
	a := v.amounts()
	patch := transaction.Patch{
		Date:        new(strings.TrimSpace(v.date)),
		Dinheiro:    &a.Dinheiro,
		Pix:         &a.Pix,
		Debito:      &a.Debito,
		Credito:     &a.Credito,
		Description: &v.description,
	}
	svc := m.txService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		tx, err := svc.Update(ctx, id, patch)
		if err != nil {
			return listSavedMsg{err: err}
		}

		return listSavedMsg{change: transaction.UpdateChange(tx, previousMonth), status: "Saved."}
	}
}

func (m ListModel) deleteCmd() tea.Cmd {
	tx := m.editing
	svc := m.txService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := svc.Remove(ctx, tx.ID); err != nil {
			return listSavedMsg{err: err}
		}

		return listSavedMsg{change: transaction.DeleteChange(tx.ID, tx.Month, time.Now().UTC()), status: "Deleted."}
	}
}
