package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/comanda/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/comanda/internal/app"
	"github.com/MrJamesThe3rd/comanda/internal/config"
	"github.com/MrJamesThe3rd/comanda/internal/report"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

type model struct {
	appName       string
	txService     *transaction.Service
	reportService *report.Service
	cache         *transaction.Cache

	currentView View

	entryView  view.EntryModel
	listView   view.ListModel
	reportView view.ReportModel
	importView view.ImportModel
	exportView view.ExportModel
}

type View int

const (
	ViewMenu   View = 0
	ViewEntry  View = 1
	ViewList   View = 2
	ViewReport View = 3
	ViewImport View = 4
	ViewExport View = 5
)

func initialModel(cfg *config.Config, services *app.App, cache *transaction.Cache) model {
	return model{
		appName:       cfg.App.Name,
		txService:     services.Transactions,
		reportService: services.Reports,
		cache:         cache,
		currentView:   ViewMenu,
		listView:      view.NewListModel(services.Transactions, cache),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewEntry
				m.entryView = view.NewEntryModel(m.txService, m.cache)

				return m, m.entryView.Init()
			case "2":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.txService, m.cache)

				return m, m.listView.Init()
			case "3":
				m.currentView = ViewReport
				m.reportView = view.NewReportModel(m.reportService)

				return m, m.reportView.Init()
			case "4":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.txService, m.cache)

				return m, m.importView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.txService, m.reportService)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	case view.ChangeMsg:
		// The list renders from the shared cache even while another view is open.
		if m.currentView != ViewList {
			newModel, _ := m.listView.Update(msg)
			m.listView = newModel.(view.ListModel)
		}
	}

	switch m.currentView {
	case ViewEntry:
		var newModel tea.Model
		newModel, cmd = m.entryView.Update(msg)
		m.entryView = newModel.(view.EntryModel)
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewReport:
		var newModel tea.Model
		newModel, cmd = m.reportView.Update(msg)
		m.reportView = newModel.(view.ReportModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + "\n\n" +
				"1. New Comanda\n" +
				"2. List Comandas\n" +
				"3. Reports\n" +
				"4. Import CSV\n" +
				"5. Export\n\n" +
				"q. Quit",
		)
	case ViewEntry:
		return m.entryView.View()
	case ViewList:
		return m.listView.View()
	case ViewReport:
		return m.reportView.View()
	case ViewImport:
		return m.importView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	cache := transaction.NewCache()
	sub := services.Changes.Subscribe(0)

	defer sub.Close()

	p := tea.NewProgram(initialModel(cfg, services, cache), tea.WithAltScreen())

	go cache.Drain(ctx, sub.C, func(ch transaction.Change) {
		p.Send(view.ChangeMsg{Change: ch})
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Gaps:
				p.Send(view.ResyncMsg{})
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
