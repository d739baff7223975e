/*
Package ledger provides the bookkeeping engine for a small lounge shop.

PURPOSE:
  Tracks products, salesmen, and an append-only ledger of stock and revenue
  events. Inventory, profit, and outstanding credit are never stored; they
  are derived by folding over the ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product / Salesman: catalog records with an active flag
  - Transaction: an immutable ledger entry
  - TransactionType / PaymentType: closed string enums

DESIGN PRINCIPLES:
  1. Immutability: transactions are never modified, only voided
  2. Precision: quantities and money use decimal.Decimal
  3. Sign conventions are applied by the engine, never by callers

SEE ALSO:
  - runtime.go: rule engine (the only writer)
  - build.go: canonical transaction construction
  - aggregate.go: inventory, profit, outstanding debts
*/
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG
// =============================================================================

// Product is a sellable item. Products are never deleted; IsActive=false
// takes the place of deletion.
type Product struct {
	ID        string `validate:"required,max=64"`
	Name      string `validate:"required,max=200"`
	SellPrice decimal.Decimal
	IsActive  bool
}

// Salesman is a person who can be credited with a sale.
type Salesman struct {
	ID       string `validate:"required,max=64"`
	Name     string `validate:"required,max=200"`
	IsActive bool
}

// =============================================================================
// ENUMS
// =============================================================================

// TransactionType identifies the kind of ledger event.
type TransactionType string

const (
	TxSale          TransactionType = "SALE"
	TxRestock       TransactionType = "RESTOCK"
	TxWriteOff      TransactionType = "WRITE_OFF"
	TxCreditPayment TransactionType = "CREDIT_PAYMENT"
	TxOpenStock     TransactionType = "OPEN_STOCK"
	TxVoid          TransactionType = "VOID"
)

// TransactionTypes lists every type the ledger accepts.
var TransactionTypes = []TransactionType{
	TxSale, TxRestock, TxWriteOff, TxCreditPayment, TxOpenStock, TxVoid,
}

func (t TransactionType) Valid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PaymentType records how a sale was settled. The stored values match the
// labels used on the shop's paper forms.
type PaymentType string

const (
	PaymentNone     PaymentType = ""
	PaymentCash     PaymentType = "Cash"
	PaymentOnCredit PaymentType = "On Credit"
)

func (p PaymentType) Valid() bool {
	return p == PaymentCash || p == PaymentOnCredit
}

// ParsePaymentType accepts the stored label or the enum name
// ("Cash", "CASH", "On Credit", "ON_CREDIT").
func ParsePaymentType(s string) (PaymentType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CASH":
		return PaymentCash, nil
	case "ON CREDIT", "ON_CREDIT":
		return PaymentOnCredit, nil
	}
	return PaymentNone, newError(KindBusinessRule, "parse payment type", "unsupported payment type: %q", s)
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction is one immutable row of the ledger.
//
// Sign conventions:
//   - QuantityChange: positive for RESTOCK/OPEN_STOCK, negative for
//     SALE/WRITE_OFF, zero for CREDIT_PAYMENT, negated original for VOID.
//   - TotalCost: zero or negative (expenses).
//   - TotalRevenue: zero or positive, except VOID which negates.
//
// Optional references (ProductID, SalesmanID, PaymentType, LinkedID, Notes)
// are empty when absent.
type Transaction struct {
	ID             string
	Timestamp      time.Time
	Type           TransactionType
	ProductID      string
	SalesmanID     string
	PaymentType    PaymentType
	QuantityChange decimal.Decimal
	TotalRevenue   decimal.Decimal
	TotalCost      decimal.Decimal
	LinkedID       string
	Notes          string
}

// TimestampFormat is ISO-8601 with microsecond precision and offset.
const TimestampFormat = "2006-01-02T15:04:05.000000Z07:00"

// TimestampISO renders the timestamp the way it is persisted.
func (t Transaction) TimestampISO() string {
	return t.Timestamp.Format(TimestampFormat)
}

// ParseTimestamp reads a persisted timestamp. RFC 3339 inputs with any
// fractional precision are accepted.
func ParseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(TimestampFormat, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func (t Transaction) IsCreditSale() bool {
	return t.Type == TxSale && t.PaymentType == PaymentOnCredit
}
