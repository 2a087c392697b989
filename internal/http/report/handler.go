package report

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/comanda/internal/http/render"
	"github.com/MrJamesThe3rd/comanda/internal/report"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

type Handler struct {
	svc *report.Service
	now func() time.Time
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/monthly", h.monthly)
	r.Get("/professionals", h.professionals)
	r.Get("/trend", h.trend)
	r.Get("/forecast", h.forecast)
}

// month defaults to the current month so dashboards can call without parameters.
func (h *Handler) month(r *http.Request) string {
	if m := r.URL.Query().Get("month"); m != "" {
		return m
	}

	return transaction.MonthKey(h.now())
}

// ref is the last month of a series, defaulting to the current month.
func (h *Handler) ref(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("ref")
	if s == "" {
		return h.now(), nil
	}

	return report.ParseMonth(s)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Monthly(r.Context(), h.month(r))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, data)
}

func (h *Handler) professionals(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Professionals(r.Context(), h.month(r))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, out)
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	ref, err := h.ref(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	periods := report.DefaultPeriods

	if s := r.URL.Query().Get("periods"); s != "" {
		if periods, err = strconv.Atoi(s); err != nil {
			render.Error(w, r, render.BadRequest("periods must be an integer"))
			return
		}
	}

	points, err := h.svc.Trend(r.Context(), ref, periods)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, points)
}

func (h *Handler) forecast(w http.ResponseWriter, r *http.Request) {
	ref, err := h.ref(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	forecast, err := h.svc.Forecast(r.Context(), ref)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, forecast)
}
