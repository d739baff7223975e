/*
handlers_test.go - HTTP tests for the ledger API

Tests for:
- Catalog create/read/update
- Command routes and the error kind to status mapping
- Voids with and without a replacement
- Reports
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stockbook/ledger"
	"github.com/warp/stockbook/ledger/store"
	"github.com/warp/stockbook/metrics"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
	rt     *ledger.Runtime
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	collector := metrics.New()
	rt := ledger.NewRuntime(store.NewMemory(),
		ledger.WithDefaultSalesman("GRR00000000"),
		ledger.WithObserver(collector),
	)
	require.NoError(t, rt.EnsureDefaultSalesman(context.Background(), "Lounge Sale"))
	h := NewHandler(rt, "Test Lounge", ledger.CurrentSchemaVersion)
	return &testServer{
		t:      t,
		router: NewRouter(h, Options{Logger: zerolog.Nop(), Metrics: collector}),
		rt:     rt,
	}
}

// do sends a request and returns the recorder.
func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// expect sends a request, checks the status and decodes the body into out.
func (s *testServer) expect(status int, method, path string, body, out any) {
	s.t.Helper()
	rec := s.do(method, path, body)
	require.Equal(s.t, status, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out != nil {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

func (s *testServer) seedCatalog() {
	s.t.Helper()
	s.expect(http.StatusCreated, "POST", "/api/products", map[string]any{"id": "BEER", "name": "Lager", "sell_price": "4.50"}, nil)
	s.expect(http.StatusCreated, "POST", "/api/products", map[string]any{"id": "OLD", "name": "Retired", "sell_price": 1, "is_active": false}, nil)
	s.expect(http.StatusCreated, "POST", "/api/salesmen", map[string]any{"id": "S1", "name": "Alex"}, nil)
}

func (s *testServer) restock(qty, cost string) TransactionDTO {
	s.t.Helper()
	var tx TransactionDTO
	s.expect(http.StatusCreated, "POST", "/api/transactions/restocks", map[string]any{"product_id": "BEER", "quantity": qty, "total_cost": cost}, &tx)
	return tx
}

func (s *testServer) sale(qty, revenue, payment string) TransactionDTO {
	s.t.Helper()
	var tx TransactionDTO
	s.expect(http.StatusCreated, "POST", "/api/transactions/sales", map[string]any{
		"product_id": "BEER", "quantity": qty, "total_revenue": revenue, "payment_type": payment,
	}, &tx)
	return tx
}

// =============================================================================
// INFO AND CATALOG
// =============================================================================

func TestInfo(t *testing.T) {
	s := newTestServer(t)

	var info InfoDTO
	s.expect(http.StatusOK, "GET", "/api/info", nil, &info)

	assert.Equal(t, "Test Lounge", info.LoungeName)
	assert.Equal(t, ledger.CurrentSchemaVersion, info.SchemaVersion)
	assert.Equal(t, "GRR00000000", info.DefaultSalesman)

	rec := s.do("GET", "/api/info", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestProducts_CRUD(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()

	var active, all []ProductDTO
	s.expect(http.StatusOK, "GET", "/api/products", nil, &active)
	s.expect(http.StatusOK, "GET", "/api/products?include_inactive=true", nil, &all)
	assert.Len(t, active, 1)
	assert.Len(t, all, 2)
	assert.Equal(t, "4.50", active[0].SellPrice)

	var updated ProductDTO
	s.expect(http.StatusOK, "PATCH", "/api/products/BEER", map[string]any{"sell_price": "5"}, &updated)
	assert.Equal(t, "5.00", updated.SellPrice)
	assert.Equal(t, "Lager", updated.Name)

	var got ProductDTO
	s.expect(http.StatusOK, "GET", "/api/products/BEER", nil, &got)
	assert.Equal(t, updated, got)

	s.expect(http.StatusNotFound, "GET", "/api/products/NOPE", nil, nil)
	s.expect(http.StatusConflict, "POST", "/api/products", map[string]any{"id": "BEER", "name": "Again", "sell_price": "1"}, nil)
	s.expect(http.StatusBadRequest, "POST", "/api/products", map[string]any{"id": "X", "name": "X", "sell_price": "-1"}, nil)
	s.expect(http.StatusBadRequest, "POST", "/api/products", "{not json", nil)
}

func TestSalesmen_CRUD(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()

	var list []SalesmanDTO
	s.expect(http.StatusOK, "GET", "/api/salesmen", nil, &list)
	assert.Len(t, list, 2, "default salesman plus S1")

	var updated SalesmanDTO
	s.expect(http.StatusOK, "PATCH", "/api/salesmen/S1", map[string]any{"is_active": false}, &updated)
	assert.False(t, updated.IsActive)

	s.expect(http.StatusOK, "GET", "/api/salesmen", nil, &list)
	assert.Len(t, list, 1)
	s.expect(http.StatusNotFound, "PATCH", "/api/salesmen/NOPE", map[string]any{"name": "X"}, nil)
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestCommands_StatusMapping(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown product", "/api/transactions/sales", map[string]any{"product_id": "NOPE", "quantity": 1, "total_revenue": 1, "payment_type": "Cash"}, http.StatusNotFound, "missing_reference"},
		{"inactive product", "/api/transactions/sales", map[string]any{"product_id": "OLD", "quantity": 1, "total_revenue": 1, "payment_type": "Cash"}, http.StatusConflict, "business_rule_violation"},
		{"bad payment type", "/api/transactions/sales", map[string]any{"product_id": "BEER", "quantity": 1, "total_revenue": 1, "payment_type": "IOU"}, http.StatusConflict, "business_rule_violation"},
		{"zero quantity", "/api/transactions/write-offs", map[string]any{"product_id": "BEER", "quantity": 0}, http.StatusBadRequest, "invalid_value"},
		{"bad json", "/api/transactions/restocks", "{", http.StatusBadRequest, "invalid_value"},
		{"empty body", "/api/transactions/restocks", nil, http.StatusBadRequest, "invalid_value"},
		{"unknown credit sale", "/api/transactions/credit-payments", map[string]any{"linked_transaction_id": "T0", "total_revenue": 1}, http.StatusNotFound, "missing_reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			s.expect(tt.status, "POST", tt.path, tt.body, &resp)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}

	var txs []TransactionDTO
	s.expect(http.StatusOK, "GET", "/api/transactions", nil, &txs)
	assert.Empty(t, txs, "rejected commands leave the ledger unchanged")
}

func TestCommands_RecordAndList(t *testing.T) {
	// GIVEN: A catalog
	s := newTestServer(t)
	s.seedCatalog()

	// WHEN: Stock arrives and is sold, on credit and for cash
	restock := s.restock("10", "15")
	cash := s.sale("2", "9", "Cash")
	credit := s.sale("1", "0", "ON_CREDIT")
	var payment TransactionDTO
	s.expect(http.StatusCreated, "POST", "/api/transactions/credit-payments", map[string]any{
		"linked_transaction_id": credit.ID, "total_revenue": "2.00", "salesman_id": "S1",
	}, &payment)
	var open TransactionDTO
	s.expect(http.StatusCreated, "POST", "/api/transactions/open-stock", map[string]any{
		"product_id": "BEER", "quantity": 3, "timestamp": "2026-01-01T08:00:00Z",
	}, &open)

	// THEN: Rows carry the stored sign conventions
	assert.Equal(t, "RESTOCK", restock.Type)
	assert.Equal(t, "-15.00", restock.TotalCost)
	assert.Equal(t, "GRR00000000", restock.SalesmanID)
	assert.Equal(t, "-2", cash.QuantityChange)
	assert.Equal(t, "Cash", cash.PaymentType)
	assert.Equal(t, "On Credit", credit.PaymentType)
	assert.Equal(t, credit.ID, payment.LinkedID)
	assert.Equal(t, "S1", payment.SalesmanID)
	assert.Equal(t, "2026-01-01T08:00:00.000000Z", open.Timestamp)
	assert.Equal(t, "T20260101080000000000", open.ID)

	// AND: Listing honours filters
	var all, sales []TransactionDTO
	s.expect(http.StatusOK, "GET", "/api/transactions", nil, &all)
	s.expect(http.StatusOK, "GET", "/api/transactions?type=SALE", nil, &sales)
	assert.Len(t, all, 5)
	assert.Len(t, sales, 2)

	var got TransactionDTO
	s.expect(http.StatusOK, "GET", "/api/transactions/"+cash.ID, nil, &got)
	assert.Equal(t, cash, got)
	s.expect(http.StatusNotFound, "GET", "/api/transactions/T0", nil, nil)
}

// =============================================================================
// VOIDS
// =============================================================================

func TestVoid_WithoutBody(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()
	sale := s.sale("1", "4.50", "Cash")

	var resp VoidResponse
	s.expect(http.StatusCreated, "POST", "/api/transactions/"+sale.ID+"/void", nil, &resp)

	assert.Equal(t, "VOID", resp.Reversal.Type)
	assert.Equal(t, sale.ID, resp.Reversal.LinkedID)
	assert.Equal(t, "1", resp.Reversal.QuantityChange)
	assert.Equal(t, "-4.50", resp.Reversal.TotalRevenue)
	assert.Nil(t, resp.Replacement)

	// Voiding again is refused.
	s.expect(http.StatusConflict, "POST", "/api/transactions/"+sale.ID+"/void", nil, nil)
	// So is voiding the reversal.
	s.expect(http.StatusConflict, "POST", "/api/transactions/"+resp.Reversal.ID+"/void", nil, nil)
}

func TestVoid_WithReplacement(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()
	s.restock("10", "10")
	sale := s.sale("3", "13.50", "Cash")

	var resp VoidResponse
	s.expect(http.StatusCreated, "POST", "/api/transactions/"+sale.ID+"/void", map[string]any{
		"notes": "wrong quantity",
		"replacement": map[string]any{
			"kind":    "sale",
			"command": map[string]any{"product_id": "BEER", "quantity": 2, "total_revenue": "9.00", "payment_type": "Cash"},
		},
	}, &resp)

	require.NotNil(t, resp.Replacement)
	assert.Equal(t, "wrong quantity", resp.Reversal.Notes)
	assert.Equal(t, "-2", resp.Replacement.QuantityChange)
	assert.Nil(t, resp.Error)

	var stock []StockDTO
	s.expect(http.StatusOK, "GET", "/api/reports/stock", nil, &stock)
	require.Len(t, stock, 1)
	assert.Equal(t, "8", stock[0].Quantity)
}

func TestVoid_RejectedReplacementKeepsReversal(t *testing.T) {
	// GIVEN: A sale
	s := newTestServer(t)
	s.seedCatalog()
	sale := s.sale("1", "4.50", "Cash")

	// WHEN: It is voided with a replacement for an inactive product
	var resp VoidResponse
	s.expect(http.StatusConflict, "POST", "/api/transactions/"+sale.ID+"/void", map[string]any{
		"replacement": map[string]any{
			"kind":    "sale",
			"command": map[string]any{"product_id": "OLD", "quantity": 1, "total_revenue": 1, "payment_type": "Cash"},
		},
	}, &resp)

	// THEN: The reversal is reported and kept
	require.NotNil(t, resp.Error)
	assert.Equal(t, "business_rule_violation", resp.Error.Code)
	assert.Equal(t, sale.ID, resp.Reversal.LinkedID)
	s.expect(http.StatusOK, "GET", "/api/transactions/"+resp.Reversal.ID, nil, nil)
}

func TestVoid_BadReplacementKindAppendsNothing(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()
	sale := s.sale("1", "4.50", "Cash")

	s.expect(http.StatusBadRequest, "POST", "/api/transactions/"+sale.ID+"/void", map[string]any{
		"replacement": map[string]any{"kind": "refund", "command": map[string]any{}},
	}, nil)

	var txs []TransactionDTO
	s.expect(http.StatusOK, "GET", "/api/transactions", nil, &txs)
	assert.Len(t, txs, 1)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReports(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()
	s.restock("10", "20")
	s.sale("2", "9", "Cash")
	credit := s.sale("2", "0", "On Credit")
	s.expect(http.StatusCreated, "POST", "/api/transactions/credit-payments", map[string]any{
		"linked_transaction_id": credit.ID, "total_revenue": 3,
	}, nil)

	var stock []StockDTO
	s.expect(http.StatusOK, "GET", "/api/reports/stock", nil, &stock)
	require.Len(t, stock, 1)
	assert.Equal(t, StockDTO{ProductID: "BEER", Name: "Lager", Quantity: "6"}, stock[0])

	var profit ProfitDTO
	s.expect(http.StatusOK, "GET", "/api/reports/profit", nil, &profit)
	assert.Equal(t, ProfitDTO{TotalRevenue: "12.00", TotalCost: "-20.00", Profit: "-8.00"}, profit)

	var debts []DebtDTO
	s.expect(http.StatusOK, "GET", "/api/reports/debts", nil, &debts)
	require.Len(t, debts, 1)
	assert.Equal(t, credit.ID, debts[0].SaleID)
	assert.Equal(t, "9.00", debts[0].Principal)
	assert.Equal(t, "3.00", debts[0].Paid)
	assert.Equal(t, "6.00", debts[0].Outstanding)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedCatalog()
	s.restock("1", "1")

	rec := s.do("GET", "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `stockbook_transactions_recorded_total{type="RESTOCK"} 1`)
}
