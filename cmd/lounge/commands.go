package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stockbook/config"
	"github.com/warp/stockbook/ledger"
	"github.com/warp/stockbook/session"
)

// env is what every sub-command runs against.
type env struct {
	cfg *config.Settings
	rt  *ledger.Runtime
	out io.Writer
}

type command struct {
	name string
	help string
	run  func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"add-product", "Register a new product", runAddProduct},
	{"add-salesman", "Register a new salesman", runAddSalesman},
	{"sale", "Record a sale", runSale},
	{"restock", "Record a restock", runRestock},
	{"write-off", "Record a write-off", runWriteOff},
	{"pay-debt", "Record a payment against a credit sale", runPayDebt},
	{"void", "Void an existing transaction", runVoid},
	{"stock", "Display current stock levels", runStock},
	{"profit", "Display revenue, cost and profit", runProfit},
	{"debts", "Display outstanding credit balances", runDebts},
	{"log", "Display the transaction log", runLog},
	{"archive", "Open a new period file with carried-forward stock", runArchive},
}

var commandTable = func() map[string]command {
	m := make(map[string]command, len(commands))
	for _, c := range commands {
		m[c.name] = c
	}
	return m
}()

// =============================================================================
// FLAG HELPERS
// =============================================================================

// flags wraps a FlagSet with required-flag and decimal parsing helpers.
type flags struct {
	*flag.FlagSet
	required []string
}

func newFlags(name string, out io.Writer) *flags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return &flags{FlagSet: fs}
}

func (f *flags) requiredString(name, usage string) *string {
	f.required = append(f.required, name)
	return f.String(name, "", usage+" (required)")
}

func (f *flags) parse(args []string) error {
	if err := f.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError(f.Name(), "%v", err)
	}
	set := map[string]bool{}
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	for _, name := range f.required {
		if !set[name] {
			return usageError(f.Name(), "--%s is required", name)
		}
	}
	return nil
}

func usageError(op, format string, args ...any) error {
	return &ledger.Error{Kind: ledger.KindInvalidValue, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func parseAmount(flagName, value string) (decimal.Decimal, error) {
	d, err := ledger.ParseDecimal(value)
	if err != nil {
		return decimal.Zero, usageError("--"+flagName, "%v", err)
	}
	return d, nil
}

func parseAt(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, usageError("--at", "%v", err)
	}
	return &t, nil
}

func printRecorded(w io.Writer, tx ledger.Transaction) {
	fmt.Fprintf(w, "recorded %s %s\n", tx.Type, tx.ID)
}

// =============================================================================
// CATALOG
// =============================================================================

func runAddProduct(ctx context.Context, e *env, args []string) error {
	f := newFlags("add-product", e.out)
	id := f.requiredString("product-id", "product id")
	name := f.requiredString("product-name", "display name")
	price := f.requiredString("sell-price", "unit sell price")
	inactive := f.Bool("inactive", false, "mark the product inactive on creation")
	if err := f.parse(args); err != nil {
		return err
	}
	sellPrice, err := parseAmount("sell-price", *price)
	if err != nil {
		return err
	}

	p, err := e.rt.AddProduct(ctx, ledger.Product{ID: *id, Name: *name, SellPrice: sellPrice, IsActive: !*inactive})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "added product %s (%s) at %s\n", p.ID, p.Name, ledger.Money(p.SellPrice))
	return nil
}

func runAddSalesman(ctx context.Context, e *env, args []string) error {
	f := newFlags("add-salesman", e.out)
	id := f.requiredString("salesman-id", "salesman id")
	name := f.requiredString("salesman-name", "display name")
	inactive := f.Bool("inactive", false, "mark the salesman inactive on creation")
	if err := f.parse(args); err != nil {
		return err
	}

	s, err := e.rt.AddSalesman(ctx, ledger.Salesman{ID: *id, Name: *name, IsActive: !*inactive})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "added salesman %s (%s)\n", s.ID, s.Name)
	return nil
}

// =============================================================================
// LEDGER WRITES
// =============================================================================

func runSale(ctx context.Context, e *env, args []string) error {
	f := newFlags("sale", e.out)
	productID := f.requiredString("product-id", "product sold")
	quantity := f.requiredString("quantity", "units sold")
	revenue := f.requiredString("total-revenue", "cash received (0 for credit)")
	payment := f.requiredString("payment-type", `"Cash" or "On Credit"`)
	salesmanID := f.String("salesman-id", "", "salesman (default: configured default salesman)")
	notes := f.String("notes", "", "free text")
	at := f.String("at", "", "RFC 3339 timestamp (default: now)")
	if err := f.parse(args); err != nil {
		return err
	}

	qty, err := parseAmount("quantity", *quantity)
	if err != nil {
		return err
	}
	rev, err := parseAmount("total-revenue", *revenue)
	if err != nil {
		return err
	}
	pt, err := ledger.ParsePaymentType(*payment)
	if err != nil {
		return err
	}
	ts, err := parseAt(*at)
	if err != nil {
		return err
	}

	tx, err := e.rt.RecordSale(ctx, ledger.SaleCommand{
		ProductID:    *productID,
		SalesmanID:   *salesmanID,
		Quantity:     qty,
		TotalRevenue: rev,
		PaymentType:  pt,
		Timestamp:    ts,
		Notes:        *notes,
	})
	if err != nil {
		return err
	}
	printRecorded(e.out, tx)
	return nil
}

func runRestock(ctx context.Context, e *env, args []string) error {
	f := newFlags("restock", e.out)
	productID := f.requiredString("product-id", "product restocked")
	quantity := f.requiredString("quantity", "units received")
	cost := f.requiredString("total-cost", "amount paid (positive)")
	salesmanID := f.String("salesman-id", "", "salesman (default: configured default salesman)")
	notes := f.String("notes", "", "free text")
	at := f.String("at", "", "RFC 3339 timestamp (default: now)")
	if err := f.parse(args); err != nil {
		return err
	}

	qty, err := parseAmount("quantity", *quantity)
	if err != nil {
		return err
	}
	totalCost, err := parseAmount("total-cost", *cost)
	if err != nil {
		return err
	}
	ts, err := parseAt(*at)
	if err != nil {
		return err
	}

	tx, err := e.rt.RecordRestock(ctx, ledger.RestockCommand{
		ProductID:  *productID,
		SalesmanID: *salesmanID,
		Quantity:   qty,
		TotalCost:  totalCost,
		Timestamp:  ts,
		Notes:      *notes,
	})
	if err != nil {
		return err
	}
	printRecorded(e.out, tx)
	return nil
}

func runWriteOff(ctx context.Context, e *env, args []string) error {
	f := newFlags("write-off", e.out)
	productID := f.requiredString("product-id", "product written off")
	quantity := f.requiredString("quantity", "units lost")
	salesmanID := f.String("salesman-id", "", "salesman (default: configured default salesman)")
	notes := f.String("notes", "", "free text")
	at := f.String("at", "", "RFC 3339 timestamp (default: now)")
	if err := f.parse(args); err != nil {
		return err
	}

	qty, err := parseAmount("quantity", *quantity)
	if err != nil {
		return err
	}
	ts, err := parseAt(*at)
	if err != nil {
		return err
	}

	tx, err := e.rt.RecordWriteOff(ctx, ledger.WriteOffCommand{
		ProductID:  *productID,
		SalesmanID: *salesmanID,
		Quantity:   qty,
		Timestamp:  ts,
		Notes:      *notes,
	})
	if err != nil {
		return err
	}
	printRecorded(e.out, tx)
	return nil
}

func runPayDebt(ctx context.Context, e *env, args []string) error {
	f := newFlags("pay-debt", e.out)
	linkedID := f.requiredString("linked-transaction-id", "credit sale being paid")
	revenue := f.requiredString("total-revenue", "amount received")
	salesmanID := f.String("salesman-id", "", "salesman (default: configured default salesman)")
	notes := f.String("notes", "", "free text")
	at := f.String("at", "", "RFC 3339 timestamp (default: now)")
	if err := f.parse(args); err != nil {
		return err
	}

	rev, err := parseAmount("total-revenue", *revenue)
	if err != nil {
		return err
	}
	ts, err := parseAt(*at)
	if err != nil {
		return err
	}

	tx, err := e.rt.RecordCreditPayment(ctx, ledger.CreditPaymentCommand{
		LinkedID:     *linkedID,
		SalesmanID:   *salesmanID,
		TotalRevenue: rev,
		Timestamp:    ts,
		Notes:        *notes,
	})
	if err != nil {
		return err
	}
	printRecorded(e.out, tx)
	return nil
}

func runVoid(ctx context.Context, e *env, args []string) error {
	f := newFlags("void", e.out)
	linkedID := f.requiredString("linked-transaction-id", "transaction to reverse")
	notes := f.String("notes", "", "free text")
	if err := f.parse(args); err != nil {
		return err
	}

	txs, err := e.rt.RecordVoid(ctx, ledger.VoidCommand{LinkedID: *linkedID, Notes: *notes})
	if err != nil {
		return err
	}
	for _, tx := range txs {
		printRecorded(e.out, tx)
	}
	return nil
}

// =============================================================================
// REPORTS
// =============================================================================

func runStock(ctx context.Context, e *env, args []string) error {
	if err := newFlags("stock", e.out).parse(args); err != nil {
		return err
	}
	inv, err := e.rt.Inventory(ctx)
	if err != nil {
		return err
	}
	products, err := e.rt.ListProducts(ctx, true)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tQUANTITY")
	for _, l := range inv {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ProductID, names[l.ProductID], l.Quantity.String())
	}
	return tw.Flush()
}

func runProfit(ctx context.Context, e *env, args []string) error {
	if err := newFlags("profit", e.out).parse(args); err != nil {
		return err
	}
	s, err := e.rt.ProfitSummary(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Revenue\t%s\n", ledger.Money(s.TotalRevenue))
	fmt.Fprintf(tw, "Cost\t%s\n", ledger.Money(s.TotalCost))
	fmt.Fprintf(tw, "Profit\t%s\n", ledger.Money(s.Profit))
	return tw.Flush()
}

func runDebts(ctx context.Context, e *env, args []string) error {
	if err := newFlags("debts", e.out).parse(args); err != nil {
		return err
	}
	debts, err := e.rt.OutstandingDebts(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SALE\tPRODUCT\tSALESMAN\tPRINCIPAL\tPAID\tOUTSTANDING")
	total := decimal.Zero
	for _, d := range debts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.SaleID, d.ProductID, d.SalesmanID,
			ledger.Money(d.Principal), ledger.Money(d.Paid), ledger.Money(d.Outstanding))
		total = total.Add(d.Outstanding)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t%s\n", ledger.Money(total))
	return tw.Flush()
}

func runLog(ctx context.Context, e *env, args []string) error {
	if err := newFlags("log", e.out).parse(args); err != nil {
		return err
	}
	txs, err := e.rt.ListTransactions(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tTYPE\tPRODUCT\tSALESMAN\tPAYMENT\tQTY\tREVENUE\tCOST\tLINKED\tNOTES")
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.TimestampISO(), t.Type, t.ProductID, t.SalesmanID, t.PaymentType,
			t.QuantityChange.String(), ledger.Money(t.TotalRevenue), ledger.Money(t.TotalCost),
			t.LinkedID, t.Notes)
	}
	return tw.Flush()
}

// =============================================================================
// ARCHIVE
// =============================================================================

// runArchive opens the data file named by --into as the next period and
// seeds it from the current book.
func runArchive(ctx context.Context, e *env, args []string) error {
	f := newFlags("archive", e.out)
	into := f.requiredString("into", "data file for the new period")
	at := f.String("at", "", "RFC 3339 opening timestamp (default: now)")
	if err := f.parse(args); err != nil {
		return err
	}
	ts, err := parseAt(*at)
	if err != nil {
		return err
	}
	opening := time.Now().UTC()
	if ts != nil {
		opening = *ts
	}

	next := *e.cfg
	next.DataFile = *into
	s, err := session.Open(ctx, &next)
	if err != nil {
		return fmt.Errorf("%w: %w", errUnavailable, err)
	}
	defer s.Close()

	opened, err := ledger.RollOver(ctx, e.rt, s.Runtime, opening)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "opened %s with %d stock lines\n", next.DataFile, len(opened))
	return nil
}
