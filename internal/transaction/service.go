package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	// DeleteTransaction returns ErrNotFound when id does not exist.
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	BeginImport(ctx context.Context, minDate, maxDate time.Time) (ImportTx, error)
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, txs []*Transaction) ([]*Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo  Repository
	rates calculation.Rates
	now   func() time.Time
}

func NewService(repo Repository, rates calculation.Rates) *Service {
	return &Service{repo: repo, rates: rates, now: time.Now}
}

// CreateParams is the user input for a new transaction. Date is YYYY-MM-DD.
type CreateParams struct {
	Date           string
	Amounts        calculation.Amounts
	Split          calculation.SplitOverride
	ClienteID      *uuid.UUID
	ProfissionalID *uuid.UUID
	Description    string
}

// Patch holds the fields of an update. Nil fields are left unchanged.
type Patch struct {
	Date           *string
	Dinheiro       *decimal.Decimal
	Pix            *decimal.Decimal
	Debito         *decimal.Decimal
	Credito        *decimal.Decimal
	Split          *calculation.SplitOverride
	ClienteID      *uuid.UUID
	ProfissionalID *uuid.UUID
	Description    *string
}

// Rates returns the rates new transactions are booked with.
func (s *Service) Rates() calculation.Rates {
	return s.rates
}

// Preview runs the same calculation Add would persist, without persisting anything.
func (s *Service) Preview(amounts calculation.Amounts, split calculation.SplitOverride) calculation.Result {
	return calculation.Calculate(amounts, s.rates.WithSplit(split))
}

// Build validates params and returns a fully computed transaction with a fresh id.
// It is the only place new transactions are constructed, for single adds and imports alike.
func Build(params CreateParams, rates calculation.Rates, now time.Time) (*Transaction, error) {
	date, err := parseDate(params.Date)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:             uuid.New(),
		ClienteID:      params.ClienteID,
		ProfissionalID: params.ProfissionalID,
		Description:    strings.TrimSpace(params.Description),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := compute(tx, date, params.Amounts, rates.WithSplit(params.Split)); err != nil {
		return nil, err
	}

	return tx, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: "date", Reason: "is required"}
	}

	date, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: "must be in YYYY-MM-DD format"}
	}

	return date, nil
}

// compute fills every date and amount derived field of tx.
func compute(tx *Transaction, date time.Time, amounts calculation.Amounts, rates calculation.Rates) error {
	result := calculation.Calculate(amounts, rates)
	if result.TotalBruto.IsZero() {
		return &ValidationError{Field: "amounts", Reason: "at least one payment method must be greater than zero"}
	}

	tx.Date = date
	tx.Month = MonthKey(date)
	tx.Year = date.Year()
	tx.Amounts = amounts.Normalized()
	tx.Result = result

	return nil
}

func (s *Service) Add(ctx context.Context, params CreateParams) (*Transaction, error) {
	tx, err := Build(params, s.rates, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, backendErr("creating transaction", err)
	}

	return tx, nil
}

// Update merges p into the stored transaction and recomputes every derived field
// from the merged raw amounts, using the rates the transaction was booked with.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (*Transaction, error) {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, backendErr("getting transaction", err)
	}

	tx := *current

	date := tx.Date
	if p.Date != nil {
		if date, err = parseDate(*p.Date); err != nil {
			return nil, err
		}
	}

	amounts := tx.Amounts
	setIf(&amounts.Dinheiro, p.Dinheiro)
	setIf(&amounts.Pix, p.Pix)
	setIf(&amounts.Debito, p.Debito)
	setIf(&amounts.Credito, p.Credito)

	rates := tx.Rates
	if p.Split != nil {
		rates = rates.WithSplit(*p.Split)
	}

	if err := compute(&tx, date, amounts, rates); err != nil {
		return nil, err
	}

	if p.ClienteID != nil {
		tx.ClienteID = p.ClienteID
	}

	if p.ProfissionalID != nil {
		tx.ProfissionalID = p.ProfissionalID
	}

	if p.Description != nil {
		tx.Description = strings.TrimSpace(*p.Description)
	}

	tx.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateTransaction(ctx, &tx); err != nil {
		return nil, backendErr("updating transaction", err)
	}

	return &tx, nil
}

func setIf(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

// Remove permanently deletes a transaction. Missing ids always yield ErrNotFound.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return backendErr("deleting transaction", err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, backendErr("getting transaction", err)
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, backendErr("listing transactions", err)
	}

	return txs, nil
}

type ImportResult struct {
	Imported  []*Transaction
	New       []*Transaction
	Conflicts []Conflict
}

// Conflict pairs an incoming row with an already stored transaction that has
// the same date and the same four raw amounts.
type Conflict struct {
	Incoming *Transaction
	Existing *Transaction
}

// ImportBatch stores every row in one backend transaction, unless some rows look like
// transactions that already exist. In that case nothing is written and the caller gets
// the split between new rows and conflicts to confirm through CreateBatch.
func (s *Service) ImportBatch(ctx context.Context, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	txs, err := s.buildAll(params)
	if err != nil {
		return nil, err
	}

	minDate, maxDate := dateRange(txs)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, backendErr("begin import", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, txs)
	if err != nil {
		return nil, backendErr("find duplicates", err)
	}

	lookup := make(map[string]*Transaction, len(duplicates))
	for _, d := range duplicates {
		lookup[DuplicateKey(d)] = d
	}

	var fresh []*Transaction

	var conflicts []Conflict

	for _, tx := range txs {
		existing, found := lookup[DuplicateKey(tx)]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: tx, Existing: existing})
			continue
		}

		fresh = append(fresh, tx)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: fresh, Conflicts: conflicts}, nil
	}

	if err := itx.CreateTransactions(ctx, fresh); err != nil {
		return nil, backendErr("create transactions", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, backendErr("commit import", err)
	}

	return &ImportResult{Imported: fresh}, nil
}

// CreateBatch stores every row without duplicate detection, all or nothing.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	txs, err := s.buildAll(params)
	if err != nil {
		return nil, err
	}

	minDate, maxDate := dateRange(txs)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, backendErr("begin import", err)
	}
	defer itx.Rollback()

	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, backendErr("create transactions", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, backendErr("commit import", err)
	}

	return txs, nil
}

func (s *Service) buildAll(params []CreateParams) ([]*Transaction, error) {
	now := s.now().UTC()
	txs := make([]*Transaction, len(params))

	for i, p := range params {
		tx, err := Build(p, s.rates, now)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		txs[i] = tx
	}

	return txs, nil
}

// DuplicateKey identifies transactions that are probably the same comanda entered twice.
func DuplicateKey(tx *Transaction) string {
	return strings.Join([]string{
		tx.Date.Format(time.DateOnly),
		tx.Dinheiro.String(),
		tx.Pix.String(),
		tx.Debito.String(),
		tx.Credito.String(),
	}, "|")
}

func dateRange(txs []*Transaction) (time.Time, time.Time) {
	minDate := txs[0].Date
	maxDate := txs[0].Date

	for _, tx := range txs[1:] {
		if tx.Date.Before(minDate) {
			minDate = tx.Date
		}

		if tx.Date.After(maxDate) {
			maxDate = tx.Date
		}
	}

	return minDate, maxDate
}
