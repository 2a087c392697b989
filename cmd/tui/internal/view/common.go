package view

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// ChangeMsg carries a change that was applied to the shared transaction cache.
type ChangeMsg struct {
	Change transaction.Change
}

// ResyncMsg means change events were dropped and views should reload from the store.
type ResyncMsg struct{}

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	panelStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
)

func activeStyle(s string) string {
	return accentStyle.Render(s)
}
