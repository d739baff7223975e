package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stockbook/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type book struct {
	t    *testing.T
	path string
}

func newBook(t *testing.T) *book {
	t.Setenv("STOCKBOOK_LOG_LEVEL", "disabled")
	return &book{t: t, path: filepath.Join(t.TempDir(), "lounge.db")}
}

// run executes one CLI invocation against the book and returns the exit
// code and stdout.
func (b *book) run(args ...string) (int, string) {
	b.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"-db", b.path}, args...), &stdout, &stderr)
	return code, stdout.String()
}

func (b *book) mustRun(args ...string) string {
	b.t.Helper()
	code, out := b.run(args...)
	require.Equal(b.t, exitOK, code, "lounge %s", strings.Join(args, " "))
	return out
}

// lastID returns the id printed by a "recorded TYPE ID" line.
func lastID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(strings.TrimSpace(out))
	require.NotEmpty(t, fields)
	return fields[len(fields)-1]
}

func seedCatalog(b *book) {
	b.mustRun("add-product", "--product-id", "BEER", "--product-name", "Lager", "--sell-price", "4.50")
	b.mustRun("add-salesman", "--salesman-id", "S1", "--salesman-name", "Alex")
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestCLI_SaleFlowAndReports(t *testing.T) {
	// GIVEN: A fresh book with one product and one salesman
	b := newBook(t)
	seedCatalog(b)

	// WHEN: Stock arrives, one cash and one credit sale are recorded and the
	//       credit sale is partly paid
	b.mustRun("restock", "--product-id", "BEER", "--quantity", "24", "--total-cost", "36")
	b.mustRun("sale", "--product-id", "BEER", "--quantity", "2", "--total-revenue", "9", "--payment-type", "Cash", "--salesman-id", "S1")
	credit := lastID(t, b.mustRun("sale", "--product-id", "BEER", "--quantity", "2", "--total-revenue", "0", "--payment-type", "On Credit"))
	b.mustRun("pay-debt", "--linked-transaction-id", credit, "--total-revenue", "5")

	// THEN: The reports reflect every row
	stock := b.mustRun("stock")
	assert.Regexp(t, `BEER\s+Lager\s+20`, stock)

	profit := b.mustRun("profit")
	assert.Regexp(t, `Revenue\s+14\.00`, profit)
	assert.Regexp(t, `Cost\s+-36\.00`, profit)
	assert.Regexp(t, `Profit\s+-22\.00`, profit)

	debts := b.mustRun("debts")
	assert.Contains(t, debts, credit)
	assert.Regexp(t, `TOTAL\s+4\.00`, debts)

	log := b.mustRun("log")
	assert.Equal(t, 4, strings.Count(log, "\nT"))
}

func TestCLI_VoidReversesSale(t *testing.T) {
	b := newBook(t)
	seedCatalog(b)
	b.mustRun("restock", "--product-id", "BEER", "--quantity", "10", "--total-cost", "15")
	sale := lastID(t, b.mustRun("sale", "--product-id", "BEER", "--quantity", "3", "--total-revenue", "13.50", "--payment-type", "CASH"))

	out := b.mustRun("void", "--linked-transaction-id", sale, "--notes", "wrong product")
	assert.Contains(t, out, "recorded VOID V")

	assert.Regexp(t, `BEER\s+Lager\s+10`, b.mustRun("stock"))

	// A second void of the same sale is refused.
	code, _ := b.run("void", "--linked-transaction-id", sale)
	assert.Equal(t, exitBusiness, code)
}

func TestCLI_ArchiveCarriesStockForward(t *testing.T) {
	// GIVEN: A book with closing stock
	b := newBook(t)
	seedCatalog(b)
	b.mustRun("restock", "--product-id", "BEER", "--quantity", "12", "--total-cost", "18")
	b.mustRun("sale", "--product-id", "BEER", "--quantity", "5", "--total-revenue", "22.50", "--payment-type", "Cash")

	// WHEN: The period is archived into a new file
	next := filepath.Join(t.TempDir(), "next.db")
	out := b.mustRun("archive", "--into", next, "--at", "2026-01-01T00:00:00Z")
	assert.Contains(t, out, "1 stock lines")

	// THEN: The new file opens with the carried-forward quantity
	nb := &book{t: t, path: next}
	assert.Regexp(t, `BEER\s+Lager\s+7`, nb.mustRun("stock"))
	assert.Contains(t, nb.mustRun("log"), "carried forward 2026-01-01")

	// Archiving into a file that already has rows is refused.
	code, _ := b.run("archive", "--into", next)
	assert.Equal(t, exitBusiness, code)
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestCLI_ExitCodes(t *testing.T) {
	b := newBook(t)
	seedCatalog(b)
	b.mustRun("add-product", "--product-id", "OLD", "--product-name", "Retired", "--sell-price", "1", "--inactive")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown product", []string{"sale", "--product-id", "NOPE", "--quantity", "1", "--total-revenue", "1", "--payment-type", "Cash"}, exitMissingRef},
		{"inactive product", []string{"sale", "--product-id", "OLD", "--quantity", "1", "--total-revenue", "1", "--payment-type", "Cash"}, exitBusiness},
		{"zero quantity", []string{"write-off", "--product-id", "BEER", "--quantity", "0"}, exitInvalid},
		{"bad number", []string{"restock", "--product-id", "BEER", "--quantity", "lots", "--total-cost", "1"}, exitInvalid},
		{"missing flag", []string{"restock", "--product-id", "BEER", "--quantity", "1"}, exitInvalid},
		{"bad payment type", []string{"sale", "--product-id", "BEER", "--quantity", "1", "--total-revenue", "1", "--payment-type", "Barter"}, exitBusiness},
		{"unknown transaction", []string{"void", "--linked-transaction-id", "T0"}, exitMissingRef},
		{"duplicate product", []string{"add-product", "--product-id", "BEER", "--product-name", "Again", "--sell-price", "1"}, exitBusiness},
		{"unknown command", []string{"dance"}, exitInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := b.run(tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestCLI_MissingEnvFile(t *testing.T) {
	t.Setenv("STOCKBOOK_LOG_LEVEL", "disabled")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-env", filepath.Join(t.TempDir(), "absent.env"), "stock"}, &stdout, &stderr)
	assert.Equal(t, exitUnavailable, code)
}

func TestCLI_SchemaMismatch(t *testing.T) {
	b := newBook(t)
	st, err := sqlite.New(b.path)
	require.NoError(t, err)
	require.NoError(t, st.SetSchemaVersion(context.Background(), "0.1.0"))
	require.NoError(t, st.Close())

	code, _ := b.run("stock")
	assert.Equal(t, exitUnavailable, code)
}
