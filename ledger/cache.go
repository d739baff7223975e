/*
cache.go - Read-through cache over catalog and ledger reads

PURPOSE:
  Avoids re-reading the store on every query within one session. Each of
  the three tables has its own typed Slot; a Slot builds a View on first
  Get and keeps it until Invalidate.

VIEWS:
  All:    rows in insertion order
  Active: rows whose active flag is set (catalog only; nil for the ledger)
  ByID:   key -> row

CONTRACT:
  - The runtime invalidates Transactions after every successful append,
    before the record call returns.
  - Products / Salesmen are invalidated only when catalog rows change.
  - A Cache belongs to exactly one Runtime and is not safe to share.
*/
package ledger

import "context"

// View is a memoized snapshot of one table.
type View[T any] struct {
	All    []T
	Active []T
	ByID   map[string]T
}

// CacheObserver receives hit/miss notifications. See metrics.Collector.
type CacheObserver interface {
	CacheHit(bucket string)
	CacheMiss(bucket string)
}

// Slot is one cache partition.
type Slot[T any] struct {
	name   string
	load   func(ctx context.Context) ([]T, error)
	key    func(T) string
	active func(T) bool // nil when the table has no active flag
	obs    CacheObserver
	view   *View[T]
}

// Get returns the memoized view, loading it from the store when absent.
func (s *Slot[T]) Get(ctx context.Context) (*View[T], error) {
	if s.view != nil {
		if s.obs != nil {
			s.obs.CacheHit(s.name)
		}
		return s.view, nil
	}
	if s.obs != nil {
		s.obs.CacheMiss(s.name)
	}

	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	v := &View[T]{All: rows, ByID: make(map[string]T, len(rows))}
	for _, row := range rows {
		v.ByID[s.key(row)] = row
		if s.active != nil && s.active(row) {
			v.Active = append(v.Active, row)
		}
	}
	s.view = v
	return v, nil
}

// Invalidate drops the memoized view; the next Get reloads it.
func (s *Slot[T]) Invalidate() { s.view = nil }

// Cached reports whether a view is currently held.
func (s *Slot[T]) Cached() bool { return s.view != nil }

// Cache holds the three typed slots of a session.
type Cache struct {
	Products     *Slot[Product]
	Salesmen     *Slot[Salesman]
	Transactions *Slot[Transaction]
}

// Cache bucket names, used as metric labels.
const (
	BucketProducts     = "products"
	BucketSalesmen     = "salesmen"
	BucketTransactions = "transactions"
)

// NewCache builds a cache reading through store.
func NewCache(store Store, obs CacheObserver) *Cache {
	return &Cache{
		Products: &Slot[Product]{
			name:   BucketProducts,
			load:   store.Products,
			key:    func(p Product) string { return p.ID },
			active: func(p Product) bool { return p.IsActive },
			obs:    obs,
		},
		Salesmen: &Slot[Salesman]{
			name:   BucketSalesmen,
			load:   store.Salesmen,
			key:    func(s Salesman) string { return s.ID },
			active: func(s Salesman) bool { return s.IsActive },
			obs:    obs,
		},
		Transactions: &Slot[Transaction]{
			name: BucketTransactions,
			load: store.Transactions,
			key:  func(t Transaction) string { return t.ID },
			obs:  obs,
		},
	}
}

// InvalidateAll drops every slot.
func (c *Cache) InvalidateAll() {
	c.Products.Invalidate()
	c.Salesmen.Invalidate()
	c.Transactions.Invalidate()
}
