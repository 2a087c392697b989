package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/comanda/internal/app"
	"github.com/MrJamesThe3rd/comanda/internal/config"
	comandaHttp "github.com/MrJamesThe3rd/comanda/internal/http"
	"github.com/MrJamesThe3rd/comanda/internal/http/auth"
	exportHandler "github.com/MrJamesThe3rd/comanda/internal/http/export"
	importHandler "github.com/MrJamesThe3rd/comanda/internal/http/importcsv"
	reportHandler "github.com/MrJamesThe3rd/comanda/internal/http/report"
	txHandler "github.com/MrJamesThe3rd/comanda/internal/http/transaction"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	var (
		transactionH = txHandler.NewHandler(services.Transactions)
		importH      = importHandler.NewHandler(services.Transactions)
		exportH      = exportHandler.NewHandler(services.Transactions, services.Reports)
		reportH      = reportHandler.NewHandler(services.Reports)
	)

	opts := comandaHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
	}

	if cfg.Auth.JWTSecret != "" {
		opts.Auth = auth.New(cfg.Auth.JWTSecret, cfg.Auth.AllowedEmails)
	} else {
		slog.Warn("authentication disabled, set AUTH_JWT_SECRET to enable it")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           comandaHttp.New(opts, transactionH, importH, exportH, reportH),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr, "storage", cfg.Storage.Driver)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
