/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  One database file holds one bookkeeping period: the product catalog,
  the salesman roster, the append-only transaction ledger and a meta row
  with the schema version the file was written with.

INTERFACES IMPLEMENTED:
  ledger.Store:       catalog and ledger persistence
  ledger.SchemaStore: schema version check on session start

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the transactions table
  - No DELETE statements on any table
  - Corrections are VOID rows written by the rule engine

KEY TABLES:
  products:     id, name, sell_price, is_active
  salesmen:     id, name, is_active
  transactions: immutable ledger; seq keeps insertion order
  meta:         key/value pairs (schema_version)

DECIMALS:
  Quantities and money are stored as TEXT and parsed back with
  shopspring/decimal so no value passes through float64.

USAGE:
  st, err := sqlite.New("./stockbook.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  rt := ledger.NewRuntime(st)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/stockbook/ledger"
)

// Store implements ledger.SchemaStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (creating if needed) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema and stamps a fresh file with the current
// schema version. An existing version row is left untouched.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sell_price TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS salesmen (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		product_id TEXT,
		salesman_id TEXT,
		payment_type TEXT,
		quantity_change TEXT NOT NULL,
		total_revenue TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		linked_transaction_id TEXT,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_product
		ON transactions(product_id) WHERE product_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_linked
		ON transactions(linked_transaction_id) WHERE linked_transaction_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		ledger.CurrentSchemaVersion,
	)
	return err
}

// =============================================================================
// META (ledger.SchemaStore interface)
// =============================================================================

// SchemaVersion returns the version recorded in the file.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// SetSchemaVersion overwrites the recorded version. Used by upgrade
// tooling and tests.
func (s *Store) SetSchemaVersion(ctx context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		version,
	)
	if err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *Store) AppendProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, sell_price, is_active) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.SellPrice.String(), p.IsActive,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateID
		}
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, sell_price = ?, is_active = ? WHERE id = ?`,
		p.Name, p.SellPrice.String(), p.IsActive, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireOneRow(res)
}

// Products returns the catalog in insertion order.
func (s *Store) Products(ctx context.Context) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, sell_price, is_active FROM products ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		var (
			p     ledger.Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if p.SellPrice, err = parseDecimal("sell_price", price); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// =============================================================================
// SALESMEN
// =============================================================================

func (s *Store) AppendSalesman(ctx context.Context, sm ledger.Salesman) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO salesmen (id, name, is_active) VALUES (?, ?, ?)`,
		sm.ID, sm.Name, sm.IsActive,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateID
		}
		return fmt.Errorf("failed to save salesman: %w", err)
	}
	return nil
}

func (s *Store) UpdateSalesman(ctx context.Context, sm ledger.Salesman) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE salesmen SET name = ?, is_active = ? WHERE id = ?`,
		sm.Name, sm.IsActive, sm.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update salesman: %w", err)
	}
	return requireOneRow(res)
}

func (s *Store) Salesmen(ctx context.Context) ([]ledger.Salesman, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, is_active FROM salesmen ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query salesmen: %w", err)
	}
	defer rows.Close()

	var salesmen []ledger.Salesman
	for rows.Next() {
		var sm ledger.Salesman
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan salesman: %w", err)
		}
		salesmen = append(salesmen, sm)
	}
	return salesmen, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// AppendTransaction adds a single row to the ledger.
func (s *Store) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO transactions
		(id, timestamp, tx_type, product_id, salesman_id, payment_type,
		 quantity_change, total_revenue, total_cost, linked_transaction_id, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.TimestampISO(),
		string(tx.Type),
		nullString(tx.ProductID),
		nullString(tx.SalesmanID),
		nullString(string(tx.PaymentType)),
		tx.QuantityChange.String(),
		tx.TotalRevenue.String(),
		tx.TotalCost.String(),
		nullString(tx.LinkedID),
		nullString(tx.Notes),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateID
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Transactions returns the whole ledger in insertion order.
func (s *Store) Transactions(ctx context.Context) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, tx_type, product_id, salesman_id, payment_type,
		       quantity_change, total_revenue, total_cost, linked_transaction_id, notes
		FROM transactions
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx                      ledger.Transaction
		timestamp, txType       string
		productID, salesmanID   sql.NullString
		paymentType, linkedID   sql.NullString
		notes                   sql.NullString
		quantity, revenue, cost string
	)

	err := rows.Scan(
		&tx.ID, &timestamp, &txType, &productID, &salesmanID, &paymentType,
		&quantity, &revenue, &cost, &linkedID, &notes,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if tx.Timestamp, err = ledger.ParseTimestamp(timestamp); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.QuantityChange, err = parseDecimal("quantity_change", quantity); err != nil {
		return tx, err
	}
	if tx.TotalRevenue, err = parseDecimal("total_revenue", revenue); err != nil {
		return tx, err
	}
	if tx.TotalCost, err = parseDecimal("total_cost", cost); err != nil {
		return tx, err
	}
	tx.Type = ledger.TransactionType(txType)
	tx.ProductID = productID.String
	tx.SalesmanID = salesmanID.String
	tx.PaymentType = ledger.PaymentType(paymentType.String)
	tx.LinkedID = linkedID.String
	tx.Notes = notes.String

	return tx, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad %s %q: %w", column, value, err)
	}
	return d, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
