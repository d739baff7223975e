package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RollOver opens a new bookkeeping period in to from the closing state of
// from. The catalog is copied (rows already present in to are kept as
// they are) and every active product with positive stock gets an
// OPEN_STOCK row for its closing quantity. The target ledger must be
// empty, and every product carried forward must be active in to when it
// is already listed there. Both are checked before anything is written.
//
// Opening rows are stamped at, at+1µs, ... so their ids stay distinct and
// sorted in catalog order.
func RollOver(ctx context.Context, from, to *Runtime, at time.Time) ([]Transaction, error) {
	existing, err := to.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("roll over: %w", err)
	}
	if len(existing) > 0 {
		return nil, newError(KindBusinessRule, "roll over", "target ledger already holds %d transactions", len(existing))
	}

	products, err := from.ListProducts(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("roll over: %w", err)
	}
	salesmen, err := from.ListSalesmen(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("roll over: %w", err)
	}
	inv, err := from.Inventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("roll over: %w", err)
	}

	var carried []Product
	for _, p := range products {
		if !p.IsActive || !inv.Of(p.ID).GreaterThan(decimal.Zero) {
			continue
		}
		existing, err := to.GetProduct(ctx, p.ID)
		switch {
		case err == nil && !existing.IsActive:
			return nil, newError(KindBusinessRule, "roll over", "product %s is inactive in the target book", p.ID)
		case err != nil && !IsMissingReference(err):
			return nil, fmt.Errorf("roll over: %w", err)
		}
		carried = append(carried, p)
	}

	for _, s := range salesmen {
		if _, err := to.GetSalesman(ctx, s.ID); err == nil {
			continue
		}
		if _, err := to.AddSalesman(ctx, s); err != nil {
			return nil, err
		}
	}
	for _, p := range products {
		if _, err := to.GetProduct(ctx, p.ID); err == nil {
			continue
		}
		if _, err := to.AddProduct(ctx, p); err != nil {
			return nil, err
		}
	}

	notes := "carried forward " + at.UTC().Format(time.DateOnly)
	var opened []Transaction
	for _, p := range carried {
		qty := inv.Of(p.ID)
		ts := at.Add(time.Duration(len(opened)) * time.Microsecond)
		tx, err := to.RecordOpenStock(ctx, OpenStockCommand{
			ProductID:    p.ID,
			Quantity:     qty,
			TotalRevenue: decimal.Zero,
			Timestamp:    &ts,
			Notes:        notes,
		})
		if err != nil {
			return opened, err
		}
		opened = append(opened, tx)
	}

	from.log.Info().Int("opened", len(opened)).Time("at", at).Msg("period rolled over")
	return opened, nil
}
