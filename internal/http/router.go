package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/comanda/internal/http/auth"
	"github.com/MrJamesThe3rd/comanda/internal/http/export"
	"github.com/MrJamesThe3rd/comanda/internal/http/importcsv"
	"github.com/MrJamesThe3rd/comanda/internal/http/report"
	"github.com/MrJamesThe3rd/comanda/internal/http/transaction"
)

type Options struct {
	// Auth protects /api/v1 when set.
	Auth           *auth.Authenticator
	AllowedOrigins []string
	Timeout        time.Duration
}

func New(
	opts Options,
	transactionsV1 *transaction.Handler,
	importV1 *importcsv.Handler,
	exportV1 *export.Handler,
	reportsV1 *report.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth.Middleware)
		}

		r.Route("/transactions", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			transactionsV1.Routes(r)
		})

		r.Route("/import", importV1.Routes)
		r.Route("/export", exportV1.Routes)
		r.Route("/reports", reportsV1.Routes)
	})

	return router
}
