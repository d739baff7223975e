/*
build.go - Canonical transaction construction

Every Build* function is a pure transform of (command, id, timestamp) into
the row that gets stored. This is where sign conventions live:

  Command        QuantityChange  TotalRevenue  TotalCost
  Sale           -|qty|          as given      0
  Restock        +|qty|          0             -|cost|
  WriteOff       -|qty|          0             0
  CreditPayment  0               as given      0
  OpenStock      +|qty|          as given      0
  Void           -original       -original     -original
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

func BuildSaleTransaction(c SaleCommand, salesmanID, id string, at time.Time) Transaction {
	return Transaction{
		ID:             id,
		Timestamp:      at,
		Type:           TxSale,
		ProductID:      c.ProductID,
		SalesmanID:     salesmanID,
		PaymentType:    c.PaymentType,
		QuantityChange: c.Quantity.Abs().Neg(),
		TotalRevenue:   c.TotalRevenue,
		TotalCost:      decimal.Zero,
		Notes:          c.Notes,
	}
}

func BuildRestockTransaction(c RestockCommand, salesmanID, id string, at time.Time) Transaction {
	return Transaction{
		ID:             id,
		Timestamp:      at,
		Type:           TxRestock,
		ProductID:      c.ProductID,
		SalesmanID:     salesmanID,
		QuantityChange: c.Quantity.Abs(),
		TotalRevenue:   decimal.Zero,
		TotalCost:      c.TotalCost.Abs().Neg(),
		Notes:          c.Notes,
	}
}

func BuildWriteOffTransaction(c WriteOffCommand, salesmanID, id string, at time.Time) Transaction {
	return Transaction{
		ID:             id,
		Timestamp:      at,
		Type:           TxWriteOff,
		ProductID:      c.ProductID,
		SalesmanID:     salesmanID,
		QuantityChange: c.Quantity.Abs().Neg(),
		TotalRevenue:   decimal.Zero,
		TotalCost:      decimal.Zero,
		Notes:          c.Notes,
	}
}

// BuildCreditPaymentTransaction records a cash payment against a credit
// sale. The payment carries the sale's product so per-product reports can
// attribute it.
func BuildCreditPaymentTransaction(c CreditPaymentCommand, productID, salesmanID, id string, at time.Time) Transaction {
	return Transaction{
		ID:             id,
		Timestamp:      at,
		Type:           TxCreditPayment,
		ProductID:      productID,
		SalesmanID:     salesmanID,
		PaymentType:    PaymentCash,
		QuantityChange: decimal.Zero,
		TotalRevenue:   c.TotalRevenue,
		TotalCost:      decimal.Zero,
		LinkedID:       c.LinkedID,
		Notes:          c.Notes,
	}
}

func BuildOpenStockTransaction(c OpenStockCommand, id string, at time.Time) Transaction {
	return Transaction{
		ID:             id,
		Timestamp:      at,
		Type:           TxOpenStock,
		ProductID:      c.ProductID,
		QuantityChange: c.Quantity.Abs(),
		TotalRevenue:   c.TotalRevenue,
		TotalCost:      decimal.Zero,
		Notes:          c.Notes,
	}
}

// BuildVoidReversal negates every amount of target and links back to it.
func BuildVoidReversal(target Transaction, at time.Time, notes string) Transaction {
	return Transaction{
		ID:             GenerateTransactionID(PrefixVoid, at),
		Timestamp:      at,
		Type:           TxVoid,
		ProductID:      target.ProductID,
		SalesmanID:     target.SalesmanID,
		PaymentType:    target.PaymentType,
		QuantityChange: target.QuantityChange.Neg(),
		TotalRevenue:   target.TotalRevenue.Neg(),
		TotalCost:      target.TotalCost.Neg(),
		LinkedID:       target.ID,
		Notes:          notes,
	}
}
