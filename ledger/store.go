/*
store.go - Persistence interface for the catalog and the ledger

PURPOSE:
  Defines the boundary between the rule engine and the persistent store.
  The engine only needs three tables (products, salesmen, transactions),
  each readable in insertion order.

APPEND-ONLY CONTRACT:
  - AppendTransaction(): single-row atomic write
  - Transactions(): all rows in insertion order
  - NO update or delete for transactions

  Catalog rows may be replaced whole by key (UpdateProduct/UpdateSalesman)
  but are never deleted; IsActive=false stands in for deletion.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite file store
  - ledger/store/memory.go: in-memory store for tests and scratch sessions
*/
package ledger

import "context"

// Store handles persistence of the catalog and the transaction log.
// Appends reusing an existing key return ErrDuplicateID; updates of an
// unknown key return ErrNotFound.
type Store interface {
	AppendProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	Products(ctx context.Context) ([]Product, error)

	AppendSalesman(ctx context.Context, s Salesman) error
	UpdateSalesman(ctx context.Context, s Salesman) error
	Salesmen(ctx context.Context) ([]Salesman, error)

	// AppendTransaction is the ONLY write to the ledger.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// Transactions returns the full ledger in insertion order.
	Transactions(ctx context.Context) ([]Transaction, error)
}

// SchemaStore is implemented by stores that record which schema version
// wrote them. Runtime.EnsureSchemaVersion uses it when available.
type SchemaStore interface {
	Store
	SchemaVersion(ctx context.Context) (string, error)
}

// CurrentSchemaVersion is the layout this package reads and writes.
const CurrentSchemaVersion = "1.0.0"
