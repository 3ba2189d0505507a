/*
Package metrics exposes Prometheus instrumentation for the ledger API.

PURPOSE:
  Counters for ledger operations by outcome, a counter for fee revenue in
  minor units, and an HTTP middleware recording request durations. The
  registry is private so tests can create isolated instances.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	registry *prometheus.Registry

	Operations *prometheus.CounterVec
	FeeRevenue prometheus.Counter
	requests   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuelledger_operations_total",
		Help: "Ledger operations by type and outcome.",
	}, []string{"operation", "outcome"})

	m.FeeRevenue = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fuelledger_fee_revenue_centavos_total",
		Help: "Platform fee revenue recognized at settlement, in centavos.",
	})

	m.requests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fuelledger_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	m.registry.MustRegister(m.Operations, m.FeeRevenue, m.requests)
	return m
}

// Operation records one ledger operation outcome.
func (m *Metrics) Operation(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(name, outcome).Inc()
}

// AddFeeRevenue converts a monetary fee to centavos and adds it to the
// revenue counter.
func (m *Metrics) AddFeeRevenue(fee decimal.Decimal) {
	m.FeeRevenue.Add(fee.Mul(decimal.NewFromInt(100)).InexactFloat64())
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request durations.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
