/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address for rate limiting
  3. Logger:     zerolog request logging; the request logger is put in
                 the context for handlers
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Secure:     Security response headers (nosniff, frame deny)
  6. Metrics:    Prometheus request counters (when a collector is given)
  7. CORS:       Cross-origin requests for a browser front end

  Write routes are additionally rate limited per client IP.

ROUTE GROUPS:
  /api/info             Book name and schema version
  /api/products/*       Product catalog
  /api/salesmen/*       Salesman roster
  /api/transactions/*   Ledger reads, commands and voids
  /api/reports/*        Stock, profit, outstanding debts
  /api/scenarios/*      Demo data
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. Run behind a trusted proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"

	"github.com/warp/stockbook/logging"
	"github.com/warp/stockbook/metrics"
)

// Options tunes the router. Zero values disable the feature.
type Options struct {
	Logger  zerolog.Logger
	Metrics *metrics.Collector
	// WriteRateLimit is the number of write requests per minute allowed
	// per client IP.
	WriteRateLimit int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}).Handler)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	writes := func(r chi.Router) chi.Router { return r }
	if opts.WriteRateLimit > 0 {
		limiter := httprate.LimitByIP(opts.WriteRateLimit, time.Minute)
		writes = func(r chi.Router) chi.Router { return r.With(limiter) }
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/info", h.Info)

		// Catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			writes(r).Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			writes(r).Patch("/{id}", h.UpdateProduct)
		})
		r.Route("/salesmen", func(r chi.Router) {
			r.Get("/", h.ListSalesmen)
			writes(r).Post("/", h.CreateSalesman)
			r.Get("/{id}", h.GetSalesman)
			writes(r).Patch("/{id}", h.UpdateSalesman)
		})

		// Ledger routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			writes(r).Post("/sales", h.RecordCommand(KindSale))
			writes(r).Post("/restocks", h.RecordCommand(KindRestock))
			writes(r).Post("/write-offs", h.RecordCommand(KindWriteOff))
			writes(r).Post("/credit-payments", h.RecordCommand(KindCreditPayment))
			writes(r).Post("/open-stock", h.RecordCommand(KindOpenStock))
			r.Get("/{id}", h.GetTransaction)
			writes(r).Post("/{id}/void", h.VoidTransaction)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/stock", h.StockReport)
			r.Get("/profit", h.ProfitReport)
			r.Get("/debts", h.DebtsReport)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			writes(r).Post("/load", h.LoadScenario)
		})
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	return r
}

// requestLogger logs each request through log and hands handlers a child
// logger carrying the request id.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logging.WithContext(r.Context(), reqLog)))

			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}
