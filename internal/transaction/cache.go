package transaction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cache is a local copy of the transaction set kept current by Change events.
//
// Local writes are applied optimistically as soon as the service returns and the
// backend echoes the same change a moment later. Events are de-duplicated by id:
// a write is applied only if it is newer than what the cache holds, and ids that
// were deleted stay deleted for TombstoneTTL, so late echoes never resurrect a removed row.
type Cache struct {
	mu      sync.RWMutex
	items   map[uuid.UUID]*Transaction
	// deleted maps removed ids to when the cache learned of the removal.
	deleted map[uuid.UUID]time.Time
	now     func() time.Time
}

// TombstoneTTL is how long a deleted id keeps rejecting writes.
const TombstoneTTL = 10 * time.Minute

func NewCache() *Cache {
	return &Cache{
		items:   make(map[uuid.UUID]*Transaction),
		deleted: make(map[uuid.UUID]time.Time),
		now:     time.Now,
	}
}

func (c *Cache) pruneTombstones() {
	cutoff := c.now().Add(-TombstoneTTL)

	for id, at := range c.deleted {
		if at.Before(cutoff) {
			delete(c.deleted, id)
		}
	}
}

// Load replaces the cached set with a fresh listing.
func (c *Cache) Load(txs []*Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneTombstones()

	c.items = make(map[uuid.UUID]*Transaction, len(txs))
	for _, tx := range txs {
		if _, gone := c.deleted[tx.ID]; gone {
			continue
		}

		c.items[tx.ID] = tx
	}
}

// Apply folds ch into the cache and reports whether the cached state changed.
func (c *Cache) Apply(ch Change) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ch.Op {
	case OpInsert, OpUpdate:
		if ch.Transaction == nil {
			return false
		}

		if _, gone := c.deleted[ch.ID]; gone {
			return false
		}

		if cur, ok := c.items[ch.ID]; ok && !ch.Transaction.UpdatedAt.After(cur.UpdatedAt) {
			return false
		}

		c.items[ch.ID] = ch.Transaction

		return true
	case OpDelete:
		c.pruneTombstones()
		c.deleted[ch.ID] = c.now()

		if _, ok := c.items[ch.ID]; !ok {
			return false
		}

		delete(c.items, ch.ID)

		return true
	}

	return false
}

// Drain applies every event from changes until ctx is done or the channel closes.
// onApply, if set, is called for each event that changed the cache.
func (c *Cache) Drain(ctx context.Context, changes <-chan Change, onApply func(Change)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}

			if c.Apply(ch) && onApply != nil {
				onApply(ch)
			}
		}
	}
}

func (c *Cache) Get(id uuid.UUID) (*Transaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tx, ok := c.items[id]

	return tx, ok
}

// List returns the cached transactions matching filter, sorted by filter.Order.
func (c *Cache) List(filter ListFilter) []*Transaction {
	c.mu.RLock()
	txs := make([]*Transaction, 0, len(c.items))

	for _, tx := range c.items {
		if filter.Matches(tx) {
			txs = append(txs, tx)
		}
	}
	c.mu.RUnlock()

	Sort(txs, filter.Order)

	return txs
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}
