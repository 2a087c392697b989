package importcsv

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/comanda/internal/csvio"
	"github.com/MrJamesThe3rd/comanda/internal/http/render"
	txhttp "github.com/MrJamesThe3rd/comanda/internal/http/transaction"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

const maxUploadSize = 10 << 20

type Handler struct {
	txSvc *transaction.Service
}

func NewHandler(txSvc *transaction.Service) *Handler {
	return &Handler{txSvc: txSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
	r.Post("/confirm", h.confirmImport)
}

type importSuccessResponse struct {
	Imported     int                `json:"imported"`
	Transactions []txhttp.Response  `json:"transactions"`
	Skipped      []csvio.SkippedRow `json:"skipped,omitempty"`
}

type rowDTO struct {
	Date string `json:"date" validate:"required"`
	txhttp.AmountsRequest
}

type conflictDTO struct {
	Incoming rowDTO          `json:"incoming"`
	Existing txhttp.Response `json:"existing"`
}

type importConflictResponse struct {
	New       []rowDTO           `json:"new"`
	Conflicts []conflictDTO      `json:"conflicts"`
	Skipped   []csvio.SkippedRow `json:"skipped,omitempty"`
}

type confirmRequest struct {
	Rows []rowDTO `json:"rows" validate:"required,min=1,dive"`
}

// importCSV stores every row of the uploaded file, or answers 409 with the rows that
// look like already stored transactions so the client can confirm what to keep.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parsed, err := csvio.Parse(file)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	result, err := h.txSvc.ImportBatch(r.Context(), parsed.Rows)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]rowDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
			Skipped:   parsed.Skipped,
		}

		for _, tx := range result.New {
			resp.New = append(resp.New, toRowDTO(tx))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toRowDTO(c.Incoming),
				Existing: txhttp.ToResponse(c.Existing),
			})
		}

		render.JSON(w, http.StatusConflict, resp)

		return
	}

	render.JSON(w, http.StatusCreated, importSuccessResponse{
		Imported:     len(result.Imported),
		Transactions: txhttp.ToResponseList(result.Imported),
		Skipped:      parsed.Skipped,
	})
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params := make([]transaction.CreateParams, 0, len(req.Rows))
	for _, row := range req.Rows {
		params = append(params, transaction.CreateParams{
			Date:    row.Date,
			Amounts: row.Amounts(),
		})
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, importSuccessResponse{
		Imported:     len(txs),
		Transactions: txhttp.ToResponseList(txs),
	})
}

func toRowDTO(tx *transaction.Transaction) rowDTO {
	return rowDTO{
		Date: tx.Date.Format(time.DateOnly),
		AmountsRequest: txhttp.AmountsRequest{
			Dinheiro: txhttp.Amount{Decimal: tx.Dinheiro},
			Pix:      txhttp.Amount{Decimal: tx.Pix},
			Debito:   txhttp.Amount{Decimal: tx.Debito},
			Credito:  txhttp.Amount{Decimal: tx.Credito},
		},
	}
}
