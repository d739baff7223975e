/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate an empty book with realistic
	data for demos. Every row goes through the rule engine exactly as a
	client request would, so a scenario is also a smoke test of the rules.

AVAILABLE SCENARIOS:

	opening-night: catalog, opening stock, restock, cash and credit sales
	tab-settlement: a credit sale settled by two partial payments
	corrections:   a mistyped sale voided and replaced, plus a write-off

HOW SCENARIOS WORK:
 1. Refuse unless the ledger is empty (rows cannot be deleted)
 2. Add the scenario's products and salesmen (existing ids are kept)
 3. Record its transactions, stamped a minute apart ending now

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "opening-night"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, s)
 3. Add it to the scenarioLoaders map

SEE ALSO:
  - handlers.go: Handler and error mapping
  - ledger/rules.go: The rules every scenario row passes
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stockbook/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "opening-night",
		Name:        "Opening Night",
		Description: "Opening stock, a restock, cash and credit sales",
	},
	{
		ID:          "tab-settlement",
		Name:        "Tab Settlement",
		Description: "A credit sale settled by two partial payments",
	},
	{
		ID:          "corrections",
		Name:        "Corrections",
		Description: "A mistyped sale voided with a replacement, and a write-off",
	},
}

var scenarioLoaders = map[string]func(ctx context.Context, s *seeder) error{
	"opening-night":  loadOpeningNightScenario,
	"tab-settlement": loadTabSettlementScenario,
	"corrections":    loadCorrectionsScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the scenario loaded into this book, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario seeds an empty book with a demo scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	txs, err := h.rt.ListTransactions(ctx)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	if len(txs) > 0 {
		writeError(w, http.StatusConflict, "Scenarios can only be loaded into an empty ledger", nil)
		return
	}

	s := &seeder{rt: h.rt, at: time.Now().UTC().Add(-time.Hour)}
	if err := load(ctx, s); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	h.currentScenario = req.ScenarioID

	loaded, err := h.rt.ListTransactions(ctx)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "loaded",
		"scenario":     req.ScenarioID,
		"transactions": len(loaded),
	})
}

// =============================================================================
// SEEDER
// =============================================================================

// seeder records scenario rows one minute apart.
type seeder struct {
	rt *ledger.Runtime
	at time.Time
}

func (s *seeder) next() *time.Time {
	t := s.at
	s.at = s.at.Add(time.Minute)
	return &t
}

func (s *seeder) product(ctx context.Context, id, name, price string) error {
	_, err := s.rt.AddProduct(ctx, ledger.Product{ID: id, Name: name, SellPrice: ledger.MustParseDecimal(price), IsActive: true})
	if ledger.IsBusinessRule(err) {
		return nil
	}
	return err
}

func (s *seeder) salesman(ctx context.Context, id, name string) error {
	_, err := s.rt.AddSalesman(ctx, ledger.Salesman{ID: id, Name: name, IsActive: true})
	if ledger.IsBusinessRule(err) {
		return nil
	}
	return err
}

func (s *seeder) record(ctx context.Context, cmds ...ledger.Command) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, cmd := range cmds {
		tx, err := s.rt.Record(ctx, withTimestamp(cmd, s.next()))
		if err != nil {
			return out, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func withTimestamp(cmd ledger.Command, at *time.Time) ledger.Command {
	switch c := cmd.(type) {
	case ledger.SaleCommand:
		c.Timestamp = at
		return c
	case ledger.RestockCommand:
		c.Timestamp = at
		return c
	case ledger.WriteOffCommand:
		c.Timestamp = at
		return c
	case ledger.CreditPaymentCommand:
		c.Timestamp = at
		return c
	case ledger.OpenStockCommand:
		c.Timestamp = at
		return c
	}
	return cmd
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// =============================================================================
// LOADERS
// =============================================================================

func seedBarCatalog(ctx context.Context, s *seeder) error {
	for _, p := range [][3]string{
		{"BEER-LAGER", "Lager 0.5l", "4.50"},
		{"SODA-COLA", "Cola 0.33l", "2.50"},
		{"SNACK-NUTS", "Salted nuts", "3.00"},
	} {
		if err := s.product(ctx, p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	for _, m := range [][2]string{
		{"GRR00000001", "Alex"},
		{"GRR00000002", "Sam"},
	} {
		if err := s.salesman(ctx, m[0], m[1]); err != nil {
			return err
		}
	}
	return nil
}

func loadOpeningNightScenario(ctx context.Context, s *seeder) error {
	if err := seedBarCatalog(ctx, s); err != nil {
		return err
	}
	_, err := s.record(ctx,
		ledger.OpenStockCommand{ProductID: "BEER-LAGER", Quantity: qty(48), Notes: "carried forward"},
		ledger.OpenStockCommand{ProductID: "SODA-COLA", Quantity: qty(24), Notes: "carried forward"},
		ledger.RestockCommand{ProductID: "SNACK-NUTS", SalesmanID: "GRR00000001", Quantity: qty(30), TotalCost: ledger.MustParseDecimal("36.00")},
		ledger.SaleCommand{ProductID: "BEER-LAGER", SalesmanID: "GRR00000001", Quantity: qty(6), TotalRevenue: ledger.MustParseDecimal("27.00"), PaymentType: ledger.PaymentCash},
		ledger.SaleCommand{ProductID: "SODA-COLA", SalesmanID: "GRR00000002", Quantity: qty(4), TotalRevenue: ledger.MustParseDecimal("10.00"), PaymentType: ledger.PaymentCash},
		ledger.SaleCommand{ProductID: "SNACK-NUTS", SalesmanID: "GRR00000002", Quantity: qty(2), PaymentType: ledger.PaymentOnCredit, Notes: "table 4"},
	)
	return err
}

func loadTabSettlementScenario(ctx context.Context, s *seeder) error {
	if err := seedBarCatalog(ctx, s); err != nil {
		return err
	}
	txs, err := s.record(ctx,
		ledger.RestockCommand{ProductID: "BEER-LAGER", SalesmanID: "GRR00000001", Quantity: qty(24), TotalCost: ledger.MustParseDecimal("48.00")},
		ledger.SaleCommand{ProductID: "BEER-LAGER", SalesmanID: "GRR00000001", Quantity: qty(4), PaymentType: ledger.PaymentOnCredit, Notes: "regular's tab"},
	)
	if err != nil {
		return err
	}
	tab := txs[1].ID
	_, err = s.record(ctx,
		ledger.CreditPaymentCommand{LinkedID: tab, SalesmanID: "GRR00000001", TotalRevenue: ledger.MustParseDecimal("10.00")},
		ledger.CreditPaymentCommand{LinkedID: tab, SalesmanID: "GRR00000002", TotalRevenue: ledger.MustParseDecimal("8.00")},
	)
	return err
}

func loadCorrectionsScenario(ctx context.Context, s *seeder) error {
	if err := seedBarCatalog(ctx, s); err != nil {
		return err
	}
	txs, err := s.record(ctx,
		ledger.RestockCommand{ProductID: "SODA-COLA", SalesmanID: "GRR00000002", Quantity: qty(24), TotalCost: ledger.MustParseDecimal("24.00")},
		ledger.SaleCommand{ProductID: "SODA-COLA", SalesmanID: "GRR00000002", Quantity: qty(20), TotalRevenue: ledger.MustParseDecimal("5.00"), PaymentType: ledger.PaymentCash, Notes: "typo: 20 instead of 2"},
	)
	if err != nil {
		return err
	}
	_, err = s.rt.RecordVoid(ctx, ledger.VoidCommand{
		LinkedID:  txs[1].ID,
		Timestamp: s.next(),
		Notes:     "quantity mistyped",
		Replacement: ledger.SaleCommand{
			ProductID: "SODA-COLA", SalesmanID: "GRR00000002",
			Quantity: qty(2), TotalRevenue: ledger.MustParseDecimal("5.00"),
			PaymentType: ledger.PaymentCash, Timestamp: s.next(),
		},
	})
	if err != nil {
		return err
	}
	_, err = s.record(ctx,
		ledger.WriteOffCommand{ProductID: "SODA-COLA", SalesmanID: "GRR00000002", Quantity: qty(1), Notes: "dropped can"},
	)
	return err
}
