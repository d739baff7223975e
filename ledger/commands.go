/*
commands.go - Caller intents accepted by the rule engine

The five ledger-writing commands form a closed set: Command can only be
implemented inside this package, and each implementation routes itself to
its Record* handler. A VoidCommand's replacement is any Command, so the
void step needs no runtime type switch.

Quantities and money are given as positive magnitudes; the engine applies
the sign conventions when it builds the stored row. Timestamp is optional;
when nil the runtime stamps the current time.
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Command is a ledger-writing intent other than a void.
type Command interface {
	Type() TransactionType
	record(ctx context.Context, r *Runtime) (Transaction, error)
}

type SaleCommand struct {
	ProductID    string `validate:"required,max=64"`
	SalesmanID   string `validate:"max=64"` // empty: runtime default salesman
	Quantity     decimal.Decimal
	TotalRevenue decimal.Decimal
	PaymentType  PaymentType
	Timestamp    *time.Time
	Notes        string `validate:"max=500"`
}

type RestockCommand struct {
	ProductID  string `validate:"required,max=64"`
	SalesmanID string `validate:"max=64"`
	Quantity   decimal.Decimal
	TotalCost  decimal.Decimal
	Timestamp  *time.Time
	Notes      string `validate:"max=500"`
}

type WriteOffCommand struct {
	ProductID  string `validate:"required,max=64"`
	SalesmanID string `validate:"max=64"`
	Quantity   decimal.Decimal
	Timestamp  *time.Time
	Notes      string `validate:"max=500"`
}

type CreditPaymentCommand struct {
	LinkedID     string `validate:"required,max=64"`
	SalesmanID   string `validate:"max=64"`
	TotalRevenue decimal.Decimal
	Timestamp    *time.Time
	Notes        string `validate:"max=500"`
}

// OpenStockCommand seeds stock at the start of a bookkeeping period.
type OpenStockCommand struct {
	ProductID    string `validate:"required,max=64"`
	Quantity     decimal.Decimal
	TotalRevenue decimal.Decimal
	Timestamp    *time.Time
	Notes        string `validate:"max=500"`
}

// VoidCommand reverses LinkedID and optionally records Replacement after
// the reversal has been committed.
type VoidCommand struct {
	LinkedID    string  `validate:"required,max=64"`
	Replacement Command `validate:"-"`
	Timestamp   *time.Time
	Notes       string `validate:"max=500"`
}

func (SaleCommand) Type() TransactionType          { return TxSale }
func (RestockCommand) Type() TransactionType       { return TxRestock }
func (WriteOffCommand) Type() TransactionType      { return TxWriteOff }
func (CreditPaymentCommand) Type() TransactionType { return TxCreditPayment }
func (OpenStockCommand) Type() TransactionType     { return TxOpenStock }

func (c SaleCommand) record(ctx context.Context, r *Runtime) (Transaction, error) {
	return r.RecordSale(ctx, c)
}

func (c RestockCommand) record(ctx context.Context, r *Runtime) (Transaction, error) {
	return r.RecordRestock(ctx, c)
}

func (c WriteOffCommand) record(ctx context.Context, r *Runtime) (Transaction, error) {
	return r.RecordWriteOff(ctx, c)
}

func (c CreditPaymentCommand) record(ctx context.Context, r *Runtime) (Transaction, error) {
	return r.RecordCreditPayment(ctx, c)
}

func (c OpenStockCommand) record(ctx context.Context, r *Runtime) (Transaction, error) {
	return r.RecordOpenStock(ctx, c)
}

// =============================================================================
// STRUCT VALIDATION
// =============================================================================

var validate = validator.New()

// validateStruct checks struct tags and reports the first failures as a
// single KindInvalidValue error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return newError(KindInvalidValue, "", "%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return newError(KindInvalidValue, "", "%s", strings.Join(msgs, "; "))
}
