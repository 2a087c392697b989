package transaction

import (
	"time"

	"github.com/google/uuid"
)

// ChangeChannel is the PostgreSQL notification channel stores publish Change payloads on.
const ChangeChannel = "transaction_changes"

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is a notification that a stored transaction was written or removed.
// Transaction is nil for deletes. PreviousMonth is set on updates to the month
// the transaction was in before the write.
type Change struct {
	Op            Op           `json:"op"`
	ID            uuid.UUID    `json:"id"`
	Month         string       `json:"month"`
	PreviousMonth string       `json:"previousMonth,omitempty"`
	Transaction   *Transaction `json:"transaction,omitempty"`
	At            time.Time    `json:"at"`
}

// Months returns every month whose totals the change affects.
func (c Change) Months() []string {
	if c.PreviousMonth != "" && c.PreviousMonth != c.Month {
		return []string{c.PreviousMonth, c.Month}
	}

	return []string{c.Month}
}

func InsertChange(tx *Transaction) Change {
	return Change{Op: OpInsert, ID: tx.ID, Month: tx.Month, Transaction: tx, At: tx.UpdatedAt}
}

func UpdateChange(tx *Transaction, previousMonth string) Change {
	return Change{
		Op:            OpUpdate,
		ID:            tx.ID,
		Month:         tx.Month,
		PreviousMonth: previousMonth,
		Transaction:   tx,
		At:            tx.UpdatedAt,
	}
}

func DeleteChange(id uuid.UUID, month string, at time.Time) Change {
	return Change{Op: OpDelete, ID: id, Month: month, At: at}
}
