package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

// Store is an in-memory transaction.Repository. It is safe for concurrent use.
// Data is lost on restart; use the PostgreSQL store for persistence.
type Store struct {
	mu      sync.RWMutex
	items   map[uuid.UUID]*transaction.Transaction
	publish func(transaction.Change)

	// importMu serializes batch imports the way the PostgreSQL advisory lock does.
	importMu sync.Mutex
}

type Option func(*Store)

// WithPublisher makes every committed write emit a Change to fn.
func WithPublisher(fn func(transaction.Change)) Option {
	return func(s *Store) {
		s.publish = fn
	}
}

func New(opts ...Option) *Store {
	s := &Store{items: make(map[uuid.UUID]*transaction.Transaction)}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

var _ transaction.Repository = (*Store)(nil)

func (s *Store) emit(changes ...transaction.Change) {
	if s.publish == nil {
		return
	}

	for _, ch := range changes {
		s.publish(ch)
	}
}

func clone(tx *transaction.Transaction) *transaction.Transaction {
	c := *tx
	return &c
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	s.mu.Lock()
	s.items[tx.ID] = clone(tx)
	s.mu.Unlock()

	s.emit(transaction.InsertChange(clone(tx)))

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.items[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}

	return clone(tx), nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	s.mu.Lock()

	current, ok := s.items[tx.ID]
	if !ok {
		s.mu.Unlock()
		return transaction.ErrNotFound
	}

	previousMonth := current.Month
	s.items[tx.ID] = clone(tx)
	s.mu.Unlock()

	s.emit(transaction.UpdateChange(clone(tx), previousMonth))

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()

	tx, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return transaction.ErrNotFound
	}

	delete(s.items, id)
	s.mu.Unlock()

	s.emit(transaction.DeleteChange(id, tx.Month, time.Now().UTC()))

	return nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	s.mu.RLock()

	var txs []*transaction.Transaction

	for _, tx := range s.items {
		if filter.Matches(tx) {
			txs = append(txs, clone(tx))
		}
	}
	s.mu.RUnlock()

	transaction.Sort(txs, filter.Order)

	return txs, nil
}

func (s *Store) BeginImport(ctx context.Context, minDate, maxDate time.Time) (transaction.ImportTx, error) {
	s.importMu.Lock()

	return &importTx{store: s}, nil
}

// importTx stages inserts until Commit. Commit and Rollback release the import lock once.
type importTx struct {
	store  *Store
	staged []*transaction.Transaction
	done   bool
}

func (itx *importTx) FindDuplicates(ctx context.Context, txs []*transaction.Transaction) ([]*transaction.Transaction, error) {
	keys := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		keys[transaction.DuplicateKey(tx)] = struct{}{}
	}

	itx.store.mu.RLock()
	defer itx.store.mu.RUnlock()

	var duplicates []*transaction.Transaction

	for _, tx := range itx.store.items {
		if _, found := keys[transaction.DuplicateKey(tx)]; found {
			duplicates = append(duplicates, clone(tx))
		}
	}

	transaction.Sort(duplicates, transaction.OrderAsc)

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		itx.staged = append(itx.staged, clone(tx))
	}

	return nil
}

func (itx *importTx) Commit() error {
	if itx.done {
		return nil
	}

	itx.store.mu.Lock()

	changes := make([]transaction.Change, 0, len(itx.staged))
	for _, tx := range itx.staged {
		itx.store.items[tx.ID] = tx
		changes = append(changes, transaction.InsertChange(clone(tx)))
	}
	itx.store.mu.Unlock()

	itx.finish()
	itx.store.emit(changes...)

	return nil
}

func (itx *importTx) Rollback() error {
	if itx.done {
		return nil
	}

	itx.staged = nil
	itx.finish()

	return nil
}

func (itx *importTx) finish() {
	itx.done = true
	itx.store.importMu.Unlock()
}
