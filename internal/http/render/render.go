package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/comanda/internal/csvio"
	"github.com/MrJamesThe3rd/comanda/internal/report"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

// Decode reads a JSON body into dst and runs its validate tags.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", errBadRequest, describe(verrs))
		}

		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	return nil
}

func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}

	return strings.Join(parts, "; ")
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error maps domain errors to status codes. Anything unrecognized is logged and
// reported as an internal error without details.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, transaction.ErrValidation),
		errors.Is(err, csvio.ErrImport),
		errors.Is(err, report.ErrInvalidPeriod):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, transaction.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// BadRequest wraps a parameter problem so Error reports it as 400.
func BadRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}
