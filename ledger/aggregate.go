/*
aggregate.go - Derived views computed by folding the full ledger

Nothing here is persisted. Each Calculate* function is a pure function of
the transaction list (and, for debts, the product list); the Runtime
methods feed them the cached views and never mutate them.

OUTSTANDING DEBTS:
  principal   = |quantity_change| x product's CURRENT sell price
  paid        = sum of CREDIT_PAYMENT revenue linked to the sale
  outstanding = principal - paid, listed while > 0

  The current price is used, not the price at sale time, so a price change
  after a credit sale changes what the customer owes.
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INVENTORY
// =============================================================================

type StockLevel struct {
	ProductID string
	Quantity  decimal.Decimal
}

// Inventory lists stock per product in the order products first appear in
// the ledger.
type Inventory []StockLevel

// Of returns the stock of productID, zero when it never moved.
func (inv Inventory) Of(productID string) decimal.Decimal {
	for _, l := range inv {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return decimal.Zero
}

// Map returns the inventory keyed by product id.
func (inv Inventory) Map() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(inv))
	for _, l := range inv {
		m[l.ProductID] = l.Quantity
	}
	return m
}

func CalculateInventory(txs []Transaction) Inventory {
	index := make(map[string]int)
	var inv Inventory
	for _, t := range txs {
		if t.ProductID == "" {
			continue
		}
		i, ok := index[t.ProductID]
		if !ok {
			i = len(inv)
			index[t.ProductID] = i
			inv = append(inv, StockLevel{ProductID: t.ProductID, Quantity: decimal.Zero})
		}
		inv[i].Quantity = inv[i].Quantity.Add(t.QuantityChange)
	}
	return inv
}

// =============================================================================
// PROFIT
// =============================================================================

type ProfitSummary struct {
	TotalRevenue decimal.Decimal
	TotalCost    decimal.Decimal // non-positive
	Profit       decimal.Decimal
}

func CalculateProfitSummary(txs []Transaction) ProfitSummary {
	revenue, cost := decimal.Zero, decimal.Zero
	for _, t := range txs {
		revenue = revenue.Add(t.TotalRevenue)
		cost = cost.Add(t.TotalCost)
	}
	return ProfitSummary{
		TotalRevenue: revenue,
		TotalCost:    cost,
		Profit:       revenue.Add(cost),
	}
}

// =============================================================================
// OUTSTANDING DEBTS
// =============================================================================

type Debt struct {
	SaleID      string
	ProductID   string
	SalesmanID  string
	Timestamp   time.Time
	Principal   decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
}

// CalculateOutstandingDebts lists credit sales that are not fully paid, in
// ledger order. Voided sales are skipped; products missing from the
// catalog are priced at zero.
func CalculateOutstandingDebts(txs []Transaction, products []Product) []Debt {
	prices := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.SellPrice
	}

	paid := make(map[string]decimal.Decimal)
	voided := make(map[string]bool)
	for _, t := range txs {
		switch t.Type {
		case TxCreditPayment:
			paid[t.LinkedID] = paid[t.LinkedID].Add(t.TotalRevenue)
		case TxVoid:
			voided[t.LinkedID] = true
		}
	}

	var debts []Debt
	for _, t := range txs {
		if !t.IsCreditSale() || voided[t.ID] {
			continue
		}
		principal := t.QuantityChange.Abs().Mul(prices[t.ProductID])
		outstanding := principal.Sub(paid[t.ID])
		if !outstanding.IsPositive() {
			continue
		}
		debts = append(debts, Debt{
			SaleID:      t.ID,
			ProductID:   t.ProductID,
			SalesmanID:  t.SalesmanID,
			Timestamp:   t.Timestamp,
			Principal:   principal,
			Paid:        paid[t.ID],
			Outstanding: outstanding,
		})
	}
	return debts
}

// =============================================================================
// RUNTIME ENTRY POINTS
// =============================================================================

func (r *Runtime) Inventory(ctx context.Context) (Inventory, error) {
	v, err := r.cache.Transactions.Get(ctx)
	if err != nil {
		return nil, err
	}
	return CalculateInventory(v.All), nil
}

func (r *Runtime) ProfitSummary(ctx context.Context) (ProfitSummary, error) {
	v, err := r.cache.Transactions.Get(ctx)
	if err != nil {
		return ProfitSummary{}, err
	}
	return CalculateProfitSummary(v.All), nil
}

func (r *Runtime) OutstandingDebts(ctx context.Context) ([]Debt, error) {
	txs, err := r.cache.Transactions.Get(ctx)
	if err != nil {
		return nil, err
	}
	products, err := r.cache.Products.Get(ctx)
	if err != nil {
		return nil, err
	}
	return CalculateOutstandingDebts(txs.All, products.All), nil
}
