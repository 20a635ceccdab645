package observability

import (
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the platform core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	reportDuration      *prometheus.HistogramVec
	externalErrors      *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	requestsTotal       *prometheus.CounterVec
	matchPasses         *prometheus.CounterVec
	partnershipsCreated prometheus.Counter
	reportsGenerated    prometheus.Counter
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
				Name:    "haven_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		reportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "haven_report_duration_seconds",
				Help:    "Duration of report computation by report.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haven_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haven_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haven_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haven_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		matchPasses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "haven_match_passes_total",
				Help: "Total matching passes run.",
			},
			[]string{"status"},
		),
		partnershipsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "haven_partnerships_created_total",
				Help: "Total partnerships persisted.",
			},
		),
		reportsGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "haven_reports_generated_total",
				Help: "Total analytics and recruitment reports generated.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordReportDuration records how long one report computation took.
func (m *Metrics) RecordReportDuration(report string, d time.Duration) {
	m.reportDuration.WithLabelValues(report).Observe(d.Seconds())
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

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrMatchPass counts one matching pass with its outcome.
func (m *Metrics) IncrMatchPass(status string) {
	m.matchPasses.WithLabelValues(status).Inc()
}

// AddPartnershipsCreated adds persisted partnerships to the counter.
func (m *Metrics) AddPartnershipsCreated(n int) {
	m.partnershipsCreated.Add(float64(n))
}

// IncrReportGenerated counts one generated report.
func (m *Metrics) IncrReportGenerated() {
	m.reportsGenerated.Inc()
}

// PlatformSnapshot returns a snapshot of the operational counters suitable
// for the GET /v1/metrics/platform endpoint.
func (m *Metrics) PlatformSnapshot() (*domain.PlatformMetrics, error) {
	matchPasses := getCounterValue(m.matchPasses.WithLabelValues("success")) +
		getCounterValue(m.matchPasses.WithLabelValues("error"))
	totalRequests := getCounterValue(m.requestsTotal.WithLabelValues("success")) +
		getCounterValue(m.requestsTotal.WithLabelValues("error"))
	errorCount := getCounterValue(m.requestsTotal.WithLabelValues("error"))

	cacheHits, cacheMisses := 0.0, 0.0
	for _, cache := range []string{"weekly_review", "skill_index"} {
		cacheHits += getCounterValue(m.cacheHits.WithLabelValues(cache))
		cacheMisses += getCounterValue(m.cacheMisses.WithLabelValues(cache))
	}

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.PlatformMetrics{
		MatchPassesTotal:    int64(matchPasses),
		PartnershipsCreated: int64(getCounterValue(m.partnershipsCreated)),
		ReportsGenerated:    int64(getCounterValue(m.reportsGenerated)),
		ErrorRate:           errorRate,
		CacheHitRate:        cacheHitRate,
		Period:              "all_time",
	}, nil
}

// getCounterValue extracts the current float64 value from a Counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
