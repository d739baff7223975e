package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stockbook/ledger"
)

func TestCalculateInventory_FirstAppearanceOrder(t *testing.T) {
	txs := []ledger.Transaction{
		{Type: ledger.TxRestock, ProductID: "B", QuantityChange: d("5")},
		{Type: ledger.TxRestock, ProductID: "A", QuantityChange: d("2")},
		{Type: ledger.TxCreditPayment, ProductID: "", QuantityChange: d("0")},
		{Type: ledger.TxSale, ProductID: "B", QuantityChange: d("-1.5")},
	}

	inv := ledger.CalculateInventory(txs)

	require.Len(t, inv, 2)
	assert.Equal(t, "B", inv[0].ProductID)
	assertDecimal(t, "3.5", inv[0].Quantity)
	assert.Equal(t, "A", inv[1].ProductID)
	assertDecimal(t, "0", inv.Of("unknown"))
	assertDecimal(t, "2", inv.Map()["A"])
}

func TestCalculateInventory_Empty(t *testing.T) {
	assert.Empty(t, ledger.CalculateInventory(nil))
}

func TestCalculateProfitSummary(t *testing.T) {
	txs := []ledger.Transaction{
		{TotalRevenue: d("10.10"), TotalCost: d("0")},
		{TotalRevenue: d("0"), TotalCost: d("-3.05")},
		{TotalRevenue: d("-0.10"), TotalCost: d("0")},
	}

	s := ledger.CalculateProfitSummary(txs)

	assertDecimal(t, "10.00", s.TotalRevenue)
	assertDecimal(t, "-3.05", s.TotalCost)
	assertDecimal(t, "6.95", s.Profit)
}

func TestCalculateOutstandingDebts(t *testing.T) {
	products := []ledger.Product{
		{ID: "P1", SellPrice: d("2.50")},
	}
	txs := []ledger.Transaction{
		{ID: "T1", Type: ledger.TxSale, PaymentType: ledger.PaymentOnCredit, ProductID: "P1", QuantityChange: d("-4")},
		{ID: "T2", Type: ledger.TxSale, PaymentType: ledger.PaymentOnCredit, ProductID: "GONE", QuantityChange: d("-1")},
		{ID: "T3", Type: ledger.TxSale, PaymentType: ledger.PaymentOnCredit, ProductID: "P1", QuantityChange: d("-1")},
		{ID: "V3", Type: ledger.TxVoid, LinkedID: "T3"},
		{ID: "T4", Type: ledger.TxSale, PaymentType: ledger.PaymentCash, ProductID: "P1", QuantityChange: d("-1")},
		{ID: "T5", Type: ledger.TxCreditPayment, LinkedID: "T1", TotalRevenue: d("4")},
	}

	debts := ledger.CalculateOutstandingDebts(txs, products)

	// T2 prices at zero, T3 is voided, T4 is cash.
	require.Len(t, debts, 1)
	assert.Equal(t, "T1", debts[0].SaleID)
	assertDecimal(t, "10.00", debts[0].Principal)
	assertDecimal(t, "4", debts[0].Paid)
	assertDecimal(t, "6.00", debts[0].Outstanding)
}

func TestOutstandingDebts_UseCurrentSellPrice(t *testing.T) {
	// GIVEN: A credit sale of P1 at 2.00
	f := newFixture(t)
	f.sale("P1", "3", "0", ledger.PaymentOnCredit)

	// WHEN: The price goes up
	price := d("3.00")
	_, err := f.rt.UpdateProduct(f.ctx, "P1", ledger.ProductUpdate{SellPrice: &price})
	require.NoError(t, err)

	// THEN: The debt follows the new price
	debts, err := f.rt.OutstandingDebts(f.ctx)
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assertDecimal(t, "9.00", debts[0].Outstanding)
}
