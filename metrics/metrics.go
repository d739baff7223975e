/*
Package metrics exposes Prometheus collectors for the ledger engine and
its HTTP surface.

Collector implements ledger.Observer so a Runtime reports committed
transactions, rejected commands and cache hits/misses without importing
Prometheus itself.

  m := metrics.New()
  rt := ledger.NewRuntime(store, ledger.WithObserver(m))
  r.Use(m.Middleware)
  r.Handle("/metrics", m.Handler())
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/stockbook/ledger"
)

const namespace = "stockbook"

type Collector struct {
	registry        *prometheus.Registry
	handler         http.Handler
	transactions    *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New builds a Collector on its own registry.
func New() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_recorded_total",
			Help:      "Transactions appended to the ledger, by type.",
		}, []string{"type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Commands rejected by the rule engine, by type and error kind.",
		}, []string{"type", "kind"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Session cache reads served without touching the store.",
		}, []string{"bucket"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Session cache reads that reloaded a table from the store.",
		}, []string{"bucket"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	registry.MustRegister(
		c.transactions, c.rejections,
		c.cacheHits, c.cacheMisses,
		c.requestsTotal, c.requestDuration,
	)
	c.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return c
}

// =============================================================================
// ledger.Observer
// =============================================================================

func (c *Collector) TransactionRecorded(t ledger.TransactionType) {
	c.transactions.WithLabelValues(string(t)).Inc()
}

func (c *Collector) CommandRejected(t ledger.TransactionType, kind ledger.ErrorKind) {
	c.rejections.WithLabelValues(string(t), kind.String()).Inc()
}

func (c *Collector) CacheHit(bucket string) {
	c.cacheHits.WithLabelValues(bucket).Inc()
}

func (c *Collector) CacheMiss(bucket string) {
	c.cacheMisses.WithLabelValues(bucket).Inc()
}

// =============================================================================
// HTTP
// =============================================================================

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

// Middleware records count and duration of every request by chi route
// pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		c.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		c.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (c *Collector) Registerer() prometheus.Registerer {
	return c.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
