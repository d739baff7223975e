/*
rules.go - Validation and command processing

PURPOSE:
  The rule engine is the sole gatekeeper between caller intent and ledger
  mutation. Every Record* call follows the same pipeline:

    validate (catalog + ledger state) -> stamp -> build -> append -> invalidate

  All validation failures are returned before anything is appended. The
  one exception is RecordVoid with a replacement: the reversal is
  committed first, and the replacement then runs through its own pipeline.
  If the replacement fails, the reversal stays in the ledger (there is no
  delete) and the caller gets a *ReplacementError naming it.

COMMON PRECONDITIONS:
  - Referenced product/salesman exists (MissingReference) and is active
    (BusinessRule).
  - Quantities are strictly positive, money is non-negative (InvalidValue).
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ReplacementError reports a void whose reversal was committed but whose
// replacement command was rejected. Unwrap yields the replacement's error.
type ReplacementError struct {
	Reversal Transaction
	Err      error
}

func (e *ReplacementError) Error() string {
	return fmt.Sprintf("void %s committed but replacement failed: %v", e.Reversal.ID, e.Err)
}

func (e *ReplacementError) Unwrap() error { return e.Err }

// Record dispatches any ledger-writing command to its handler.
func (r *Runtime) Record(ctx context.Context, cmd Command) (Transaction, error) {
	if cmd == nil {
		return Transaction{}, newError(KindBusinessRule, "record", "no command given")
	}
	return cmd.record(ctx, r)
}

// =============================================================================
// RECORD OPERATIONS
// =============================================================================

func (r *Runtime) RecordSale(ctx context.Context, c SaleCommand) (Transaction, error) {
	const op = "record sale"
	if err := validateStruct(c); err != nil {
		return r.reject(op, TxSale, err)
	}
	if _, err := r.activeProduct(ctx, c.ProductID); err != nil {
		return r.reject(op, TxSale, err)
	}
	salesmanID, err := r.resolveSalesman(ctx, c.SalesmanID, true)
	if err != nil {
		return r.reject(op, TxSale, err)
	}
	if err := requirePositiveQuantity(c.Quantity); err != nil {
		return r.reject(op, TxSale, err)
	}
	if err := requireNonNegativeMoney(c.TotalRevenue); err != nil {
		return r.reject(op, TxSale, err)
	}
	if !c.PaymentType.Valid() {
		return r.reject(op, TxSale, newError(KindBusinessRule, "", "unsupported payment type: %q", c.PaymentType))
	}

	at := r.stamp.next(c.Timestamp)
	tx := BuildSaleTransaction(c, salesmanID, GenerateTransactionID(PrefixNormal, at), at)
	return r.commit(ctx, op, tx)
}

func (r *Runtime) RecordRestock(ctx context.Context, c RestockCommand) (Transaction, error) {
	const op = "record restock"
	if err := validateStruct(c); err != nil {
		return r.reject(op, TxRestock, err)
	}
	if _, err := r.activeProduct(ctx, c.ProductID); err != nil {
		return r.reject(op, TxRestock, err)
	}
	salesmanID, err := r.resolveSalesman(ctx, c.SalesmanID, false)
	if err != nil {
		return r.reject(op, TxRestock, err)
	}
	if err := requirePositiveQuantity(c.Quantity); err != nil {
		return r.reject(op, TxRestock, err)
	}
	if err := requireNonNegativeMoney(c.TotalCost); err != nil {
		return r.reject(op, TxRestock, err)
	}

	at := r.stamp.next(c.Timestamp)
	tx := BuildRestockTransaction(c, salesmanID, GenerateTransactionID(PrefixNormal, at), at)
	return r.commit(ctx, op, tx)
}

func (r *Runtime) RecordWriteOff(ctx context.Context, c WriteOffCommand) (Transaction, error) {
	const op = "record write-off"
	if err := validateStruct(c); err != nil {
		return r.reject(op, TxWriteOff, err)
	}
	if _, err := r.activeProduct(ctx, c.ProductID); err != nil {
		return r.reject(op, TxWriteOff, err)
	}
	salesmanID, err := r.resolveSalesman(ctx, c.SalesmanID, false)
	if err != nil {
		return r.reject(op, TxWriteOff, err)
	}
	if err := requirePositiveQuantity(c.Quantity); err != nil {
		return r.reject(op, TxWriteOff, err)
	}

	at := r.stamp.next(c.Timestamp)
	tx := BuildWriteOffTransaction(c, salesmanID, GenerateTransactionID(PrefixNormal, at), at)
	return r.commit(ctx, op, tx)
}

func (r *Runtime) RecordCreditPayment(ctx context.Context, c CreditPaymentCommand) (Transaction, error) {
	const op = "record credit payment"
	if err := validateStruct(c); err != nil {
		return r.reject(op, TxCreditPayment, err)
	}
	view, err := r.cache.Transactions.Get(ctx)
	if err != nil {
		return Transaction{}, err
	}
	sale, ok := view.ByID[c.LinkedID]
	if !ok {
		return r.reject(op, TxCreditPayment, newError(KindMissingReference, "", "unknown transaction id: %s", c.LinkedID))
	}
	if err := ValidateCreditSaleLink(sale, view.All); err != nil {
		return r.reject(op, TxCreditPayment, err)
	}
	salesmanID, err := r.resolveSalesman(ctx, c.SalesmanID, false)
	if err != nil {
		return r.reject(op, TxCreditPayment, err)
	}
	if err := requireNonNegativeMoney(c.TotalRevenue); err != nil {
		return r.reject(op, TxCreditPayment, err)
	}

	at := r.stamp.next(c.Timestamp)
	tx := BuildCreditPaymentTransaction(c, sale.ProductID, salesmanID, GenerateTransactionID(PrefixNormal, at), at)
	return r.commit(ctx, op, tx)
}

func (r *Runtime) RecordOpenStock(ctx context.Context, c OpenStockCommand) (Transaction, error) {
	const op = "record open stock"
	if err := validateStruct(c); err != nil {
		return r.reject(op, TxOpenStock, err)
	}
	if _, err := r.activeProduct(ctx, c.ProductID); err != nil {
		return r.reject(op, TxOpenStock, err)
	}
	if err := requirePositiveQuantity(c.Quantity); err != nil {
		return r.reject(op, TxOpenStock, err)
	}
	if err := requireNonNegativeMoney(c.TotalRevenue); err != nil {
		return r.reject(op, TxOpenStock, err)
	}

	at := r.stamp.next(c.Timestamp)
	tx := BuildOpenStockTransaction(c, GenerateTransactionID(PrefixNormal, at), at)
	return r.commit(ctx, op, tx)
}

// RecordVoid appends the reversal of c.LinkedID and then, if given, the
// replacement. The result is [reversal] or [reversal, replacement].
//
// When the replacement is rejected the returned slice still holds the
// committed reversal and err is a *ReplacementError.
func (r *Runtime) RecordVoid(ctx context.Context, c VoidCommand) ([]Transaction, error) {
	const op = "record void"
	if err := validateStruct(c); err != nil {
		_, err = r.reject(op, TxVoid, err)
		return nil, err
	}
	view, err := r.cache.Transactions.Get(ctx)
	if err != nil {
		return nil, err
	}
	target, ok := view.ByID[c.LinkedID]
	if !ok {
		_, err := r.reject(op, TxVoid, newError(KindMissingReference, "", "unknown transaction id: %s", c.LinkedID))
		return nil, err
	}
	if err := ValidateVoidTarget(target, view.All); err != nil {
		_, err = r.reject(op, TxVoid, err)
		return nil, err
	}

	at := r.stamp.next(c.Timestamp)
	reversal, err := r.commit(ctx, op, BuildVoidReversal(target, at, c.Notes))
	if err != nil {
		return nil, err
	}

	results := []Transaction{reversal}
	if c.Replacement == nil {
		return results, nil
	}

	replacement, err := c.Replacement.record(ctx, r)
	if err != nil {
		r.log.Warn().Str("reversal_id", reversal.ID).Err(err).Msg("void committed without replacement")
		return results, &ReplacementError{Reversal: reversal, Err: err}
	}
	return append(results, replacement), nil
}

// =============================================================================
// LINK VALIDATION
// =============================================================================

// ValidateCreditSaleLink checks that sale can receive a credit payment.
// ledger is the full transaction log, scanned for voids of the sale.
// Any number of partial payments may link to one sale.
func ValidateCreditSaleLink(sale Transaction, ledger []Transaction) error {
	if sale.Type != TxSale {
		return newError(KindBusinessRule, "", "credit payments must reference a SALE transaction, %s is %s", sale.ID, sale.Type)
	}
	if sale.PaymentType != PaymentOnCredit {
		return newError(KindBusinessRule, "", "linked sale %s is not recorded as credit", sale.ID)
	}
	if sale.TotalRevenue.IsPositive() {
		return newError(KindBusinessRule, "", "linked credit sale %s already reports revenue", sale.ID)
	}
	if sale.LinkedID != "" {
		return newError(KindBusinessRule, "", "linked sale %s already references another transaction", sale.ID)
	}
	if v, ok := findLink(ledger, TxVoid, sale.ID); ok {
		return newError(KindBusinessRule, "", "linked sale %s was voided by %s", sale.ID, v.ID)
	}
	return nil
}

// ValidateVoidTarget checks that target may be reversed.
func ValidateVoidTarget(target Transaction, ledger []Transaction) error {
	switch target.Type {
	case TxVoid:
		return newError(KindBusinessRule, "", "cannot void a VOID transaction (%s)", target.ID)
	case TxCreditPayment:
		return newError(KindBusinessRule, "", "cannot void a credit payment transaction (%s)", target.ID)
	}
	if v, ok := findLink(ledger, TxVoid, target.ID); ok {
		return newError(KindBusinessRule, "", "transaction %s was already voided by %s", target.ID, v.ID)
	}
	return nil
}

func findLink(ledger []Transaction, typ TransactionType, linkedID string) (Transaction, bool) {
	for _, t := range ledger {
		if t.Type == typ && t.LinkedID == linkedID {
			return t, true
		}
	}
	return Transaction{}, false
}

// =============================================================================
// HELPERS
// =============================================================================

func (r *Runtime) activeProduct(ctx context.Context, id string) (Product, error) {
	p, err := r.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.IsActive {
		return Product{}, newError(KindBusinessRule, "", "product %s is inactive", id)
	}
	return p, nil
}

// resolveSalesman applies the default salesman to an empty id and checks
// that the result exists and is active. With required=false an empty id
// and no default yields "" (no salesman on the row).
func (r *Runtime) resolveSalesman(ctx context.Context, id string, required bool) (string, error) {
	if id == "" {
		id = r.defaultSalesman
	}
	if id == "" {
		if required {
			return "", newError(KindMissingReference, "", "salesman id is required and no default salesman is configured")
		}
		return "", nil
	}
	s, err := r.GetSalesman(ctx, id)
	if err != nil {
		return "", err
	}
	if !s.IsActive {
		return "", newError(KindBusinessRule, "", "salesman %s is inactive", id)
	}
	return id, nil
}

func (r *Runtime) reject(op string, typ TransactionType, err error) (Transaction, error) {
	err = withOp(err, op)
	kind := KindOf(err)
	if kind != KindUnknown {
		r.obs.CommandRejected(typ, kind)
		r.log.Warn().Str("type", string(typ)).Str("kind", kind.String()).Err(err).Msg("command rejected")
	}
	return Transaction{}, err
}

// commit appends tx and drops the cached ledger view before returning.
func (r *Runtime) commit(ctx context.Context, op string, tx Transaction) (Transaction, error) {
	err := r.store.AppendTransaction(ctx, tx)
	r.cache.Transactions.Invalidate()
	if err != nil {
		if errors.Is(err, ErrDuplicateID) {
			return r.reject(op, tx.Type, newError(KindBusinessRule, "", "transaction id %s already recorded", tx.ID))
		}
		return Transaction{}, fmt.Errorf("%s: append transaction: %w", op, err)
	}

	r.obs.TransactionRecorded(tx.Type)
	r.log.Info().
		Str("id", tx.ID).
		Str("type", string(tx.Type)).
		Str("product_id", tx.ProductID).
		Str("quantity_change", tx.QuantityChange.String()).
		Str("revenue", Money(tx.TotalRevenue)).
		Str("cost", Money(tx.TotalCost)).
		Msg("transaction recorded")
	return tx, nil
}
