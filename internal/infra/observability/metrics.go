package observability

import (
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the loan service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	schedules       *prometheus.CounterVec
	categorized     prometheus.Counter
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		schedules: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_schedules_computed_total",
				Help: "Total payment schedules computed, by kind.",
			},
			[]string{"kind"},
		),
		categorized: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_transactions_categorized_total",
				Help: "Total bank transactions run through the categorizer.",
			},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSchedule counts one computed schedule; kind is "quote",
// "contract" or "recalculation".
func (m *Metrics) IncrSchedule(kind string) {
	m.schedules.WithLabelValues(kind).Inc()
}

// AddCategorized counts transactions run through the categorizer.
func (m *Metrics) AddCategorized(n int) {
	m.categorized.Add(float64(n))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetOpsSnapshot returns the current operational counters for the
// GET /v1/admin/metrics endpoint.
func (m *Metrics) GetOpsSnapshot() *domain.OpsMetrics {
	schedules := getCounterValue(m.schedules, "quote") +
		getCounterValue(m.schedules, "contract") +
		getCounterValue(m.schedules, "recalculation")
	externalErrors := getCounterValue(m.externalErrors, "supabase") +
		getCounterValue(m.externalErrors, "zumrails")

	cacheHits := getCounterValue(m.cacheHits, "ibv_summary")
	cacheMisses := getCounterValue(m.cacheMisses, "ibv_summary")
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.OpsMetrics{
		SchedulesComputed:       int64(schedules),
		TransactionsCategorized: int64(getPlainCounterValue(m.categorized)),
		ExternalErrors:          int64(externalErrors),
		CacheHitRate:            cacheHitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getPlainCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
