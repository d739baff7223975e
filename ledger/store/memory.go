// Package store provides in-process ledger.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/stockbook/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	products     []ledger.Product
	salesmen     []ledger.Salesman
	transactions []ledger.Transaction
	txIDs        map[string]bool
	reads        map[string]int // table loads, for observing cache behaviour
}

func NewMemory() *Memory {
	return &Memory{
		txIDs: make(map[string]bool),
		reads: make(map[string]int),
	}
}

func (m *Memory) AppendProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.ID == p.ID {
			return ledger.ErrDuplicateID
		}
	}
	m.products = append(m.products, p)
	return nil
}

func (m *Memory) UpdateProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = p
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (m *Memory) Products(_ context.Context) ([]ledger.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[ledger.BucketProducts]++
	return append([]ledger.Product(nil), m.products...), nil
}

func (m *Memory) AppendSalesman(_ context.Context, s ledger.Salesman) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.salesmen {
		if existing.ID == s.ID {
			return ledger.ErrDuplicateID
		}
	}
	m.salesmen = append(m.salesmen, s)
	return nil
}

func (m *Memory) UpdateSalesman(_ context.Context, s ledger.Salesman) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.salesmen {
		if m.salesmen[i].ID == s.ID {
			m.salesmen[i] = s
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (m *Memory) Salesmen(_ context.Context) ([]ledger.Salesman, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[ledger.BucketSalesmen]++
	return append([]ledger.Salesman(nil), m.salesmen...), nil
}

// AppendTransaction adds a single transaction. Append-only.
func (m *Memory) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txIDs[tx.ID] {
		return ledger.ErrDuplicateID
	}
	m.transactions = append(m.transactions, tx)
	m.txIDs[tx.ID] = true
	return nil
}

func (m *Memory) Transactions(_ context.Context) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[ledger.BucketTransactions]++
	return append([]ledger.Transaction(nil), m.transactions...), nil
}

// SchemaVersion reports the version this package writes.
func (m *Memory) SchemaVersion(_ context.Context) (string, error) {
	return ledger.CurrentSchemaVersion, nil
}

// ReadCount returns how many times bucket was loaded.
func (m *Memory) ReadCount(bucket string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads[bucket]
}
