package transaction

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/http/render"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/preview", h.preview)
	r.Get("/rates", h.rates)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createTransactionRequest struct {
	Date string `json:"date" validate:"required"`
	AmountsRequest
	Split          *splitRequest `json:"split,omitempty"`
	ClienteID      *uuid.UUID    `json:"clienteId,omitempty"`
	ProfissionalID *uuid.UUID    `json:"profissionalId,omitempty"`
	Description    string        `json:"description" validate:"max=500"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Add(r.Context(), transaction.CreateParams{
		Date:           req.Date,
		Amounts:        req.Amounts(),
		Split:          req.Split.override(),
		ClienteID:      req.ClienteID,
		ProfissionalID: req.ProfissionalID,
		Description:    req.Description,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, ToResponse(tx))
}

type previewRequest struct {
	AmountsRequest
	Split *splitRequest `json:"split,omitempty"`
}

// preview runs the calculation without storing anything. All-zero amounts are a valid preview.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResultResponse(h.svc.Preview(req.Amounts(), req.Split.override())))
}

func (h *Handler) rates(w http.ResponseWriter, r *http.Request) {
	rates := h.svc.Rates()

	render.JSON(w, http.StatusOK, ratesResponse{
		DebitFeeRate:  rates.DebitFee,
		CreditFeeRate: rates.CreditFee,
		StudioRate:    rates.Studio,
		EduRate:       rates.Professional,
		KamRate:       rates.Assistant,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponseList(txs))
}

// ParseFilter reads a ListFilter from query parameters.
func ParseFilter(q url.Values) (transaction.ListFilter, error) {
	var filter transaction.ListFilter

	date := func(key string) (*time.Time, error) {
		s := q.Get(key)
		if s == "" {
			return nil, nil
		}

		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, render.BadRequest("%s must be YYYY-MM-DD", key)
		}

		return &t, nil
	}

	id := func(key string) (*uuid.UUID, error) {
		s := q.Get(key)
		if s == "" {
			return nil, nil
		}

		v, err := uuid.Parse(s)
		if err != nil {
			return nil, render.BadRequest("%s must be a uuid", key)
		}

		return &v, nil
	}

	money := func(key string) (*decimal.Decimal, error) {
		s := q.Get(key)
		if s == "" {
			return nil, nil
		}

		v, err := decimal.NewFromString(s)
		if err != nil {
			return nil, render.BadRequest("%s must be a number", key)
		}

		return &v, nil
	}

	var err error

	if filter.StartDate, err = date("start_date"); err != nil {
		return filter, err
	}

	if filter.EndDate, err = date("end_date"); err != nil {
		return filter, err
	}

	if filter.ClienteID, err = id("cliente_id"); err != nil {
		return filter, err
	}

	if filter.ProfissionalID, err = id("profissional_id"); err != nil {
		return filter, err
	}

	if filter.MinTotal, err = money("min_total"); err != nil {
		return filter, err
	}

	if filter.MaxTotal, err = money("max_total"); err != nil {
		return filter, err
	}

	if s := q.Get("month"); s != "" {
		if _, err := time.Parse("2006-01", s); err != nil {
			return filter, render.BadRequest("month must be YYYY-MM")
		}

		filter.Month = new(s)
	}

	if s := q.Get("method"); s != "" {
		m := transaction.Method(s)
		if !m.Valid() {
			return filter, render.BadRequest("method must be one of dinheiro, pix, debito, credito")
		}

		filter.Method = &m
	}

	switch o := transaction.Order(q.Get("order")); o {
	case "", transaction.OrderAsc, transaction.OrderDesc:
		filter.Order = o
	default:
		return filter, render.BadRequest("order must be asc or desc")
	}

	return filter, nil
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, render.BadRequest("invalid id")
	}

	return id, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(tx))
}

type updateTransactionRequest struct {
	Date           *string       `json:"date,omitempty"`
	Dinheiro       *Amount       `json:"dinheiro,omitempty"`
	Pix            *Amount       `json:"pix,omitempty"`
	Debito         *Amount       `json:"debito,omitempty"`
	Credito        *Amount       `json:"credito,omitempty"`
	Split          *splitRequest `json:"split,omitempty"`
	ClienteID      *uuid.UUID    `json:"clienteId,omitempty"`
	ProfissionalID *uuid.UUID    `json:"profissionalId,omitempty"`
	Description    *string       `json:"description,omitempty" validate:"omitempty,max=500"`
}

func amountPtr(a *Amount) *decimal.Decimal {
	if a == nil {
		return nil
	}

	return &a.Decimal
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	patch := transaction.Patch{
		Date:           req.Date,
		Dinheiro:       amountPtr(req.Dinheiro),
		Pix:            amountPtr(req.Pix),
		Debito:         amountPtr(req.Debito),
		Credito:        amountPtr(req.Credito),
		ClienteID:      req.ClienteID,
		ProfissionalID: req.ProfissionalID,
		Description:    req.Description,
	}

	if req.Split != nil {
		patch.Split = new(req.Split.override())
	}

	tx, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.svc.Remove(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
