// Package app assembles the services shared by the API server and the TUI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/comanda/internal/config"
	"github.com/MrJamesThe3rd/comanda/internal/database"
	"github.com/MrJamesThe3rd/comanda/internal/realtime"
	"github.com/MrJamesThe3rd/comanda/internal/report"
	"github.com/MrJamesThe3rd/comanda/internal/report/cache"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
	"github.com/MrJamesThe3rd/comanda/internal/transaction/memstore"
	"github.com/MrJamesThe3rd/comanda/internal/transaction/store"
)

type App struct {
	Transactions *transaction.Service
	Reports      *report.Service
	// Changes carries every committed write, whichever process made it.
	Changes *realtime.Hub

	closers []func() error
}

// New wires storage, change propagation and the report cache according to cfg.
// Background goroutines stop when ctx is done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Changes: realtime.NewHub()}

	repo, err := a.repository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Transactions = transaction.NewService(repo, cfg.CalculationRates())

	var reportCache report.Cache

	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting report cache: %w", err)
		}

		a.closers = append(a.closers, client.Close)
		reportCache = cache.New(client, cfg.Redis.TTL)
	}

	a.Reports = report.NewService(a.Transactions, reportCache)

	// Report invalidation must not miss a change.
	stopWatching := a.Changes.Watch(func(ch transaction.Change) {
		a.Reports.InvalidateChange(ctx, ch)
	})
	a.closers = append(a.closers, func() error {
		stopWatching()
		return nil
	})

	return a, nil
}

func (a *App) repository(ctx context.Context, cfg *config.Config) (transaction.Repository, error) {
	if cfg.Storage.Driver == "memory" {
		slog.Warn("using in-memory storage, data is lost on exit")
		return memstore.New(memstore.WithPublisher(a.Changes.Publish)), nil
	}

	db, err := database.New(ctx, cfg.ConnectionString(), database.Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	a.closers = append(a.closers, db.Close)

	go func() {
		if err := realtime.NewListener(cfg.ConnectionString()).Run(ctx, a.Changes.Publish); err != nil {
			slog.Error("change listener stopped", "error", err)
		}
	}()

	return store.New(db), nil
}

// Close releases connections and closes every change subscription.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("closing resource", "error", err)
		}
	}

	a.Changes.Close()
}
