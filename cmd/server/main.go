/*
main.go - HTTP server entry point

PURPOSE:
  Serves one stock book over HTTP. Handles configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load settings (.env + STOCKBOOK_* environment)
  2. Build the logger and metrics collector
  3. Open the session (store, schema check, default salesman)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -env     Env file to load before the environment (default: .env if present)
  -addr    Listen address, overrides STOCKBOOK_ADDR
  -db      Data file, overrides STOCKBOOK_DATA_FILE
           Use ":memory:" for an in-memory book

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/lounge.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: Settings
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/stockbook/api"
	"github.com/warp/stockbook/config"
	"github.com/warp/stockbook/logging"
	"github.com/warp/stockbook/metrics"
	"github.com/warp/stockbook/session"
)

func main() {
	// Flags
	envFile := flag.String("env", "", "env file to load")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "data file path")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger := logging.New(logging.FormatPretty, "info", os.Stderr)
		logger.Fatal().Err(err).Msg("failed to load settings")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DataFile = *dbPath
	}

	log := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	collector := metrics.New()

	// Open session
	s, err := session.Open(context.Background(), cfg,
		session.WithLogger(log),
		session.WithObserver(collector),
	)
	if err != nil {
		log.Fatal().Err(err).Str("data_file", cfg.DataFile).Msg("failed to open book")
	}
	defer s.Close()

	handler := api.NewHandler(s.Runtime, cfg.LoungeName, cfg.SchemaVersion)
	router := api.NewRouter(handler, api.Options{
		Logger:         log,
		Metrics:        collector,
		WriteRateLimit: cfg.RateLimit,
	})

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("lounge", cfg.LoungeName).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
