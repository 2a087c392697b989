package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
)

// Transaction is a persisted comanda: the raw payment amounts together with every value
// derived from them. Derived fields are computed once when the record is written and are
// never recomputed from current configuration, so old records keep the rates they were booked with.
type Transaction struct {
	ID    uuid.UUID `json:"id"`
	Date  time.Time `json:"date"`
	Month string    `json:"month"` // YYYY-MM
	Year  int       `json:"year"`

	calculation.Amounts
	calculation.Result

	ClienteID      *uuid.UUID `json:"clienteId,omitempty"`
	ProfissionalID *uuid.UUID `json:"profissionalId,omitempty"`
	Description    string     `json:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MonthKey formats the bucket a date belongs to.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
