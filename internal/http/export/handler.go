package export

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/comanda/internal/csvio"
	"github.com/MrJamesThe3rd/comanda/internal/http/render"
	txhttp "github.com/MrJamesThe3rd/comanda/internal/http/transaction"
	"github.com/MrJamesThe3rd/comanda/internal/report"
	"github.com/MrJamesThe3rd/comanda/internal/spreadsheet"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	txSvc     *transaction.Service
	reportSvc *report.Service
	now       func() time.Time
}

func NewHandler(txSvc *transaction.Service, reportSvc *report.Service) *Handler {
	return &Handler{txSvc: txSvc, reportSvc: reportSvc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/csv", h.csv)
	r.Get("/xlsx", h.xlsx)
}

// csv exports the transactions matching the same query parameters as the listing.
func (h *Handler) csv(w http.ResponseWriter, r *http.Request) {
	filter, err := txhttp.ParseFilter(r.URL.Query())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	txs, err := h.txSvc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := csvio.Export(&buf, txs); err != nil {
		render.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="comandas_%s.csv"`, h.now().Format("2006-01-02")))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) xlsx(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = transaction.MonthKey(h.now())
	}

	data, err := h.reportSvc.Monthly(r.Context(), month)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.Write(&buf, *data); err != nil {
		render.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="comandas_%s.xlsx"`, month))
	_, _ = w.Write(buf.Bytes())
}
