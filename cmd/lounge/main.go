/*
main.go - Command-line front end for a stock book

PURPOSE:
  Translates sub-commands and flags into ledger commands, runs them
  against the configured data file and maps failures to exit codes.

USAGE:
  lounge [-env FILE] [-db PATH] <command> [flags]

COMMANDS:
  add-product   --product-id --product-name --sell-price [--inactive]
  add-salesman  --salesman-id --salesman-name [--inactive]
  sale          --product-id --quantity --total-revenue --payment-type [--salesman-id] [--notes]
  restock       --product-id --quantity --total-cost [--salesman-id] [--notes]
  write-off     --product-id --quantity [--salesman-id] [--notes]
  pay-debt      --linked-transaction-id --total-revenue [--salesman-id] [--notes]
  void          --linked-transaction-id [--notes]
  stock | profit | debts | log
  archive       --into PATH   open a new period file with carried-forward stock

EXIT CODES:
  0  success
  1  unexpected failure
  2  business rule violation
  3  settings or data file unavailable (missing env file, schema mismatch)
  4  missing reference (unknown product, salesman or transaction)
  5  invalid value (bad number, missing flag)
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/warp/stockbook/config"
	"github.com/warp/stockbook/ledger"
	"github.com/warp/stockbook/logging"
	"github.com/warp/stockbook/session"
)

const (
	exitOK          = 0
	exitUnexpected  = 1
	exitBusiness    = 2
	exitUnavailable = 3
	exitMissingRef  = 4
	exitInvalid     = 5
)

// errUnavailable marks failures to load settings or open the data file.
var errUnavailable = errors.New("book unavailable")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lounge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", "", "env file to load (default: .env if present)")
	dbPath := fs.String("db", "", "data file, overrides STOCKBOOK_DATA_FILE")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitInvalid
	}
	if fs.NArg() == 0 {
		printUsage(stderr)
		return exitInvalid
	}

	name := fs.Arg(0)
	cmd, ok := commandTable[name]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", name)
		printUsage(stderr)
		return exitInvalid
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUnavailable
	}
	if *dbPath != "" {
		cfg.DataFile = *dbPath
	}
	log := logging.New(cfg.LogFormat, cfg.LogLevel, stderr)
	ctx = logging.WithContext(ctx, log)

	err = func() error {
		s, err := session.Open(ctx, cfg, session.WithLogger(log))
		if err != nil {
			return fmt.Errorf("%w: %w", errUnavailable, err)
		}
		defer s.Close()
		return cmd.run(ctx, &env{cfg: cfg, rt: s.Runtime, out: stdout}, fs.Args()[1:])
	}()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Error().Str("command", name).Err(err).Msg("command failed")
		}
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if errors.Is(err, errUnavailable) || errors.Is(err, ledger.ErrSchemaMismatch) || errors.Is(err, config.ErrEnvFileNotFound) {
		return exitUnavailable
	}
	switch ledger.KindOf(err) {
	case ledger.KindBusinessRule:
		return exitBusiness
	case ledger.KindMissingReference:
		return exitMissingRef
	case ledger.KindInvalidValue:
		return exitInvalid
	}
	return exitUnexpected
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Lounge stock book")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  lounge [-env FILE] [-db PATH] <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-13s %s\n", c.name, c.help)
	}
	fmt.Fprintln(w, "\nRun 'lounge <command> -h' for more information on a command.")
}
