/*
runtime.go - Per-session bundle of store, cache, and rule engine

PURPOSE:
  A Runtime is the RuntimeContext of one logical session: it owns the
  read-through cache exclusively and is the only component that writes to
  the store. Runtimes are synchronous and not safe for concurrent use;
  callers that share one (e.g. the HTTP handler) serialise access.

LIFECYCLE:
  rt := ledger.NewRuntime(store, ledger.WithDefaultSalesman("GRR00000000"))
  if err := rt.EnsureSchemaVersion(ctx, cfg.SchemaVersion); err != nil { ... }
  tx, err := rt.RecordSale(ctx, ledger.SaleCommand{...})

SEE ALSO:
  - rules.go: Record* operations and validation
  - aggregate.go: derived reports
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Observer receives engine events. metrics.Collector implements it.
type Observer interface {
	CacheObserver
	TransactionRecorded(t TransactionType)
	CommandRejected(t TransactionType, kind ErrorKind)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)                            {}
func (nopObserver) CacheMiss(string)                           {}
func (nopObserver) TransactionRecorded(TransactionType)        {}
func (nopObserver) CommandRejected(TransactionType, ErrorKind) {}

// Runtime is the rule engine bound to one store and one cache.
type Runtime struct {
	store           Store
	cache           *Cache
	stamp           stamper
	defaultSalesman string
	log             zerolog.Logger
	obs             Observer
}

type Option func(*Runtime)

// WithDefaultSalesman sets the salesman credited when a command leaves
// SalesmanID empty.
func WithDefaultSalesman(id string) Option {
	return func(r *Runtime) { r.defaultSalesman = id }
}

// WithClock replaces time.Now for commands without a timestamp.
func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) { r.stamp.clock = clock }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runtime) { r.log = l }
}

func WithObserver(o Observer) Option {
	return func(r *Runtime) {
		if o != nil {
			r.obs = o
		}
	}
}

func NewRuntime(store Store, opts ...Option) *Runtime {
	r := &Runtime{
		store: store,
		stamp: stamper{clock: time.Now},
		log:   zerolog.Nop(),
		obs:   nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = NewCache(store, r.obs)
	return r
}

// Cache exposes the session cache, mainly for tests and diagnostics.
func (r *Runtime) Cache() *Cache { return r.cache }

// DefaultSalesman returns the configured default salesman id.
func (r *Runtime) DefaultSalesman() string { return r.defaultSalesman }

// =============================================================================
// SESSION
// =============================================================================

// EnsureSchemaVersion fails with ErrSchemaMismatch when the configured
// version, or the version recorded by the store, differs from the one this
// package understands.
func (r *Runtime) EnsureSchemaVersion(ctx context.Context, expected string) error {
	if expected != CurrentSchemaVersion {
		return fmt.Errorf("%w: configured %s, supported %s", ErrSchemaMismatch, expected, CurrentSchemaVersion)
	}
	ss, ok := r.store.(SchemaStore)
	if !ok {
		return nil
	}
	found, err := ss.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if found != expected {
		return fmt.Errorf("%w: expected %s, found %s", ErrSchemaMismatch, expected, found)
	}
	return nil
}

// Refresh discards every cached view so the next read goes to the store.
func (r *Runtime) Refresh() {
	r.cache.InvalidateAll()
	r.log.Debug().Msg("session cache dropped")
}

// =============================================================================
// CATALOG READS
// =============================================================================

func (r *Runtime) ListProducts(ctx context.Context, includeInactive bool) ([]Product, error) {
	v, err := r.cache.Products.Get(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return append([]Product(nil), v.All...), nil
	}
	return append([]Product(nil), v.Active...), nil
}

func (r *Runtime) ListSalesmen(ctx context.Context, includeInactive bool) ([]Salesman, error) {
	v, err := r.cache.Salesmen.Get(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return append([]Salesman(nil), v.All...), nil
	}
	return append([]Salesman(nil), v.Active...), nil
}

// ListTransactions returns the full ledger in insertion order.
func (r *Runtime) ListTransactions(ctx context.Context) ([]Transaction, error) {
	v, err := r.cache.Transactions.Get(ctx)
	if err != nil {
		return nil, err
	}
	return append([]Transaction(nil), v.All...), nil
}

func (r *Runtime) GetProduct(ctx context.Context, id string) (Product, error) {
	v, err := r.cache.Products.Get(ctx)
	if err != nil {
		return Product{}, err
	}
	p, ok := v.ByID[id]
	if !ok {
		return Product{}, newError(KindMissingReference, "", "unknown product id: %s", id)
	}
	return p, nil
}

func (r *Runtime) GetSalesman(ctx context.Context, id string) (Salesman, error) {
	v, err := r.cache.Salesmen.Get(ctx)
	if err != nil {
		return Salesman{}, err
	}
	s, ok := v.ByID[id]
	if !ok {
		return Salesman{}, newError(KindMissingReference, "", "unknown salesman id: %s", id)
	}
	return s, nil
}

func (r *Runtime) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	v, err := r.cache.Transactions.Get(ctx)
	if err != nil {
		return Transaction{}, err
	}
	t, ok := v.ByID[id]
	if !ok {
		return Transaction{}, newError(KindMissingReference, "", "unknown transaction id: %s", id)
	}
	return t, nil
}

// =============================================================================
// CATALOG WRITES
// =============================================================================

// ProductUpdate lists the fields to replace; nil fields keep their value.
type ProductUpdate struct {
	Name      *string
	SellPrice *decimal.Decimal
	IsActive  *bool
}

type SalesmanUpdate struct {
	Name     *string
	IsActive *bool
}

func (r *Runtime) AddProduct(ctx context.Context, p Product) (Product, error) {
	const op = "add product"
	if err := validateStruct(p); err != nil {
		return Product{}, withOp(err, op)
	}
	if err := requireNonNegativeMoney(p.SellPrice); err != nil {
		return Product{}, withOp(err, op)
	}
	if _, err := r.GetProduct(ctx, p.ID); err == nil {
		return Product{}, newError(KindBusinessRule, op, "product %s already exists", p.ID)
	} else if !IsMissingReference(err) {
		return Product{}, err
	}

	err := r.store.AppendProduct(ctx, p)
	r.cache.Products.Invalidate()
	if err != nil {
		return Product{}, catalogWriteError(op, "product", p.ID, err)
	}
	r.log.Info().Str("product_id", p.ID).Str("sell_price", Money(p.SellPrice)).Bool("active", p.IsActive).Msg("product added")
	return p, nil
}

func (r *Runtime) AddSalesman(ctx context.Context, s Salesman) (Salesman, error) {
	const op = "add salesman"
	if err := validateStruct(s); err != nil {
		return Salesman{}, withOp(err, op)
	}
	if _, err := r.GetSalesman(ctx, s.ID); err == nil {
		return Salesman{}, newError(KindBusinessRule, op, "salesman %s already exists", s.ID)
	} else if !IsMissingReference(err) {
		return Salesman{}, err
	}

	err := r.store.AppendSalesman(ctx, s)
	r.cache.Salesmen.Invalidate()
	if err != nil {
		return Salesman{}, catalogWriteError(op, "salesman", s.ID, err)
	}
	r.log.Info().Str("salesman_id", s.ID).Bool("active", s.IsActive).Msg("salesman added")
	return s, nil
}

// UpdateProduct replaces the stored product with the merged record.
func (r *Runtime) UpdateProduct(ctx context.Context, id string, u ProductUpdate) (Product, error) {
	const op = "update product"
	p, err := r.GetProduct(ctx, id)
	if err != nil {
		return Product{}, withOp(err, op)
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.SellPrice != nil {
		p.SellPrice = *u.SellPrice
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if err := validateStruct(p); err != nil {
		return Product{}, withOp(err, op)
	}
	if err := requireNonNegativeMoney(p.SellPrice); err != nil {
		return Product{}, withOp(err, op)
	}

	err = r.store.UpdateProduct(ctx, p)
	r.cache.Products.Invalidate()
	if err != nil {
		return Product{}, catalogWriteError(op, "product", id, err)
	}
	r.log.Info().Str("product_id", id).Msg("product updated")
	return p, nil
}

func (r *Runtime) UpdateSalesman(ctx context.Context, id string, u SalesmanUpdate) (Salesman, error) {
	const op = "update salesman"
	s, err := r.GetSalesman(ctx, id)
	if err != nil {
		return Salesman{}, withOp(err, op)
	}
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
	if err := validateStruct(s); err != nil {
		return Salesman{}, withOp(err, op)
	}

	err = r.store.UpdateSalesman(ctx, s)
	r.cache.Salesmen.Invalidate()
	if err != nil {
		return Salesman{}, catalogWriteError(op, "salesman", id, err)
	}
	r.log.Info().Str("salesman_id", id).Msg("salesman updated")
	return s, nil
}

// EnsureDefaultSalesman registers the configured default salesman under
// name when the store does not know it yet. Existing rows are left alone,
// including inactive ones.
func (r *Runtime) EnsureDefaultSalesman(ctx context.Context, name string) error {
	if r.defaultSalesman == "" {
		return nil
	}
	_, err := r.GetSalesman(ctx, r.defaultSalesman)
	if err == nil || !IsMissingReference(err) {
		return err
	}
	_, err = r.AddSalesman(ctx, Salesman{ID: r.defaultSalesman, Name: name, IsActive: true})
	return err
}

func catalogWriteError(op, what, id string, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateID):
		return newError(KindBusinessRule, op, "%s %s already exists", what, id)
	case errors.Is(err, ErrNotFound):
		return newError(KindMissingReference, op, "unknown %s id: %s", what, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
