package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectTransactionColumns = `
	id, date, month, year,
	dinheiro, pix, debito, credito,
	total_bruto, taxa_debito, taxa_credito, total_liquido, studio_share, edu_share, kam_share,
	debit_fee_rate, credit_fee_rate, studio_rate, edu_rate, kam_rate,
	cliente_id, profissional_id, description, created_at, updated_at
`

// scanTransaction reads a row selected with selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var description sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.Date, &tx.Month, &tx.Year,
		&tx.Dinheiro, &tx.Pix, &tx.Debito, &tx.Credito,
		&tx.TotalBruto, &tx.TaxaDebito, &tx.TaxaCredito, &tx.TotalLiquido,
		&tx.StudioShare, &tx.EduShare, &tx.KamShare,
		&tx.Rates.DebitFee, &tx.Rates.CreditFee, &tx.Rates.Studio, &tx.Rates.Professional, &tx.Rates.Assistant,
		&tx.ClienteID, &tx.ProfissionalID, &description, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Date = tx.Date.UTC()
	tx.Description = description.String

	return &tx, nil
}

func insertTransaction(ctx context.Context, q querier, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (` + selectTransactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err := q.ExecContext(ctx, query,
		tx.ID, tx.Date, tx.Month, tx.Year,
		tx.Dinheiro, tx.Pix, tx.Debito, tx.Credito,
		tx.TotalBruto, tx.TaxaDebito, tx.TaxaCredito, tx.TotalLiquido,
		tx.StudioShare, tx.EduShare, tx.KamShare,
		tx.Rates.DebitFee, tx.Rates.CreditFee, tx.Rates.Studio, tx.Rates.Professional, tx.Rates.Assistant,
		tx.ClienteID, tx.ProfissionalID, tx.Description, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}

	return nil
}

// notify queues ch on the change channel. PostgreSQL delivers it only if the
// surrounding transaction commits.
func notify(ctx context.Context, q querier, ch transaction.Change) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}

	if _, err := q.ExecContext(ctx, "SELECT pg_notify($1, $2)", transaction.ChangeChannel, string(payload)); err != nil {
		return fmt.Errorf("notifying change: %w", err)
	}

	return nil
}

// withTx runs fn inside a database transaction, committing when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(dbTx); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	return s.withTx(ctx, func(dbTx *sql.Tx) error {
		if err := insertTransaction(ctx, dbTx, tx); err != nil {
			return err
		}

		return notify(ctx, dbTx, transaction.InsertChange(tx))
	})
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

// methodColumns maps payment methods to their amount column. Method values are
// only ever interpolated into SQL through this table.
var methodColumns = map[transaction.Method]string{
	transaction.MethodDinheiro: "dinheiro",
	transaction.MethodPix:      "pix",
	transaction.MethodDebito:   "debito",
	transaction.MethodCredito:  "credito",
}

// buildListQuery translates filter into SQL. It must select exactly what ListFilter.Matches accepts.
func buildListQuery(filter transaction.ListFilter) (string, []any, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE TRUE`

	var args []any

	argIdx := 1

	add := func(clause string, arg any) {
		query += fmt.Sprintf(clause, argIdx)

		args = append(args, arg)
		argIdx++
	}

	if filter.StartDate != nil {
		add(" AND date >= $%d", *filter.StartDate)
	}

	if filter.EndDate != nil {
		add(" AND date <= $%d", *filter.EndDate)
	}

	if filter.Month != nil {
		add(" AND month = $%d", *filter.Month)
	}

	if filter.ClienteID != nil {
		add(" AND cliente_id = $%d", *filter.ClienteID)
	}

	if filter.ProfissionalID != nil {
		add(" AND profissional_id = $%d", *filter.ProfissionalID)
	}

	if filter.Method != nil {
		col, ok := methodColumns[*filter.Method]
		if !ok {
			return "", nil, fmt.Errorf("unknown payment method %q", *filter.Method)
		}

		query += " AND " + col + " > 0"
	}

	if filter.MinTotal != nil {
		add(" AND total_bruto >= $%d", *filter.MinTotal)
	}

	if filter.MaxTotal != nil {
		add(" AND total_bruto <= $%d", *filter.MaxTotal)
	}

	if filter.Order == transaction.OrderDesc {
		query += " ORDER BY date DESC, created_at DESC, id DESC"
	} else {
		query += " ORDER BY date ASC, created_at ASC, id ASC"
	}

	return query, args, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET date = $1, month = $2, year = $3,
			dinheiro = $4, pix = $5, debito = $6, credito = $7,
			total_bruto = $8, taxa_debito = $9, taxa_credito = $10, total_liquido = $11,
			studio_share = $12, edu_share = $13, kam_share = $14,
			debit_fee_rate = $15, credit_fee_rate = $16, studio_rate = $17, edu_rate = $18, kam_rate = $19,
			cliente_id = $20, profissional_id = $21, description = $22, updated_at = $23
		WHERE id = $24
	`

	return s.withTx(ctx, func(dbTx *sql.Tx) error {
		var previousMonth string

		err := dbTx.QueryRowContext(ctx, `SELECT month FROM transactions WHERE id = $1 FOR UPDATE`, tx.ID).
			Scan(&previousMonth)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return transaction.ErrNotFound
			}

			return fmt.Errorf("locking transaction: %w", err)
		}

		res, err := dbTx.ExecContext(ctx, query,
			tx.Date, tx.Month, tx.Year,
			tx.Dinheiro, tx.Pix, tx.Debito, tx.Credito,
			tx.TotalBruto, tx.TaxaDebito, tx.TaxaCredito, tx.TotalLiquido,
			tx.StudioShare, tx.EduShare, tx.KamShare,
			tx.Rates.DebitFee, tx.Rates.CreditFee, tx.Rates.Studio, tx.Rates.Professional, tx.Rates.Assistant,
			tx.ClienteID, tx.ProfissionalID, tx.Description, tx.UpdatedAt,
			tx.ID,
		)
		if err != nil {
			return fmt.Errorf("updating transaction: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking updated rows: %w", err)
		}

		if n == 0 {
			return transaction.ErrNotFound
		}

		return notify(ctx, dbTx, transaction.UpdateChange(tx, previousMonth))
	})
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return s.withTx(ctx, func(dbTx *sql.Tx) error {
		var month string

		err := dbTx.QueryRowContext(ctx, `DELETE FROM transactions WHERE id = $1 RETURNING month`, id).Scan(&month)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return transaction.ErrNotFound
			}

			return fmt.Errorf("deleting transaction: %w", err)
		}

		return notify(ctx, dbTx, transaction.DeleteChange(id, month, time.Now().UTC()))
	})
}

func importLockKey(minDate, maxDate time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(minDate.Format(time.DateOnly)))
	h.Write([]byte{0})
	h.Write([]byte(maxDate.Format(time.DateOnly)))

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport opens the transaction a batch import runs in. Concurrent imports over
// the same date range serialize on an advisory lock so duplicate checks see each other's rows.
func (s *Store) BeginImport(ctx context.Context, minDate, maxDate time.Time) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	lockKey := importLockKey(minDate, maxDate)
	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error { return itx.tx.Commit() }

func (itx *importTx) Rollback() error {
	if err := itx.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

// FindDuplicates returns stored transactions sharing a duplicate key with any of txs.
func (itx *importTx) FindDuplicates(ctx context.Context, txs []*transaction.Transaction) ([]*transaction.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	minDate := txs[0].Date
	maxDate := txs[0].Date
	keySet := make(map[string]struct{}, len(txs))

	for _, tx := range txs {
		if tx.Date.Before(minDate) {
			minDate = tx.Date
		}

		if tx.Date.After(maxDate) {
			maxDate = tx.Date
		}

		keySet[transaction.DuplicateKey(tx)] = struct{}{}
	}

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC`

	rows, err := itx.tx.QueryContext(ctx, query, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var duplicates []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		if _, found := keySet[transaction.DuplicateKey(tx)]; !found {
			continue
		}

		duplicates = append(duplicates, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		if err := insertTransaction(ctx, itx.tx, tx); err != nil {
			return err
		}

		if err := notify(ctx, itx.tx, transaction.InsertChange(tx)); err != nil {
			return err
		}
	}

	return nil
}
