/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Loads each scenario into an empty SQLite book and checks the derived
	reports, so scenarios double as integration tests of the rule engine
	and the store.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stockbook/ledger"
	"github.com/warp/stockbook/store/sqlite"
)

func setupScenarioServer(t *testing.T) *testServer {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rt := ledger.NewRuntime(st, ledger.WithDefaultSalesman("GRR00000000"))
	require.NoError(t, rt.EnsureSchemaVersion(context.Background(), ledger.CurrentSchemaVersion))
	h := NewHandler(rt, "Test Lounge", ledger.CurrentSchemaVersion)
	return &testServer{t: t, router: NewRouter(h, Options{Logger: zerolog.Nop()}), rt: rt}
}

func loadScenario(s *testServer, id string) int {
	s.t.Helper()
	var resp struct {
		Status       string `json:"status"`
		Transactions int    `json:"transactions"`
	}
	s.expect(http.StatusOK, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id}, &resp)
	require.Equal(s.t, "loaded", resp.Status)
	return resp.Transactions
}

func stockOf(s *testServer) map[string]string {
	s.t.Helper()
	var stock []StockDTO
	s.expect(http.StatusOK, "GET", "/api/reports/stock", nil, &stock)
	m := make(map[string]string, len(stock))
	for _, l := range stock {
		m[l.ProductID] = l.Quantity
	}
	return m
}

func TestListScenarios(t *testing.T) {
	s := setupScenarioServer(t)

	var list []ScenarioDTO
	s.expect(http.StatusOK, "GET", "/api/scenarios", nil, &list)

	require.Len(t, list, len(scenarioLoaders))
	for _, sc := range list {
		assert.Contains(t, scenarioLoaders, sc.ID)
		assert.NotEmpty(t, sc.Description)
	}
}

func TestScenario_OpeningNight(t *testing.T) {
	s := setupScenarioServer(t)

	assert.Equal(t, 6, loadScenario(s, "opening-night"))

	assert.Equal(t, map[string]string{"BEER-LAGER": "42", "SODA-COLA": "20", "SNACK-NUTS": "28"}, stockOf(s))

	var profit ProfitDTO
	s.expect(http.StatusOK, "GET", "/api/reports/profit", nil, &profit)
	assert.Equal(t, ProfitDTO{TotalRevenue: "37.00", TotalCost: "-36.00", Profit: "1.00"}, profit)

	var debts []DebtDTO
	s.expect(http.StatusOK, "GET", "/api/reports/debts", nil, &debts)
	require.Len(t, debts, 1)
	assert.Equal(t, "6.00", debts[0].Outstanding)

	var current ScenarioDTO
	s.expect(http.StatusOK, "GET", "/api/scenarios/current", nil, &current)
	assert.Equal(t, "opening-night", current.ID)
}

func TestScenario_TabSettlement(t *testing.T) {
	s := setupScenarioServer(t)

	assert.Equal(t, 4, loadScenario(s, "tab-settlement"))

	// 4 x 4.50 = 18.00 owed, 10.00 + 8.00 paid.
	var debts []DebtDTO
	s.expect(http.StatusOK, "GET", "/api/reports/debts", nil, &debts)
	assert.Empty(t, debts)

	var payments []TransactionDTO
	s.expect(http.StatusOK, "GET", "/api/transactions?type=CREDIT_PAYMENT", nil, &payments)
	require.Len(t, payments, 2)
	assert.Equal(t, payments[0].LinkedID, payments[1].LinkedID)
}

func TestScenario_Corrections(t *testing.T) {
	s := setupScenarioServer(t)

	assert.Equal(t, 5, loadScenario(s, "corrections"))

	// 24 restocked, 2 sold after the correction, 1 written off.
	assert.Equal(t, map[string]string{"SODA-COLA": "21"}, stockOf(s))

	var voids []TransactionDTO
	s.expect(http.StatusOK, "GET", "/api/transactions?type=VOID", nil, &voids)
	require.Len(t, voids, 1)
	assert.Equal(t, "20", voids[0].QuantityChange)
}

func TestLoadScenario_Errors(t *testing.T) {
	s := setupScenarioServer(t)

	s.expect(http.StatusNotFound, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "happy-hour"}, nil)
	s.expect(http.StatusBadRequest, "POST", "/api/scenarios/load", "[", nil)

	loadScenario(s, "opening-night")
	s.expect(http.StatusConflict, "POST", "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "tab-settlement"}, nil)
}
