package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	EditsApplied        *prometheus.CounterVec
	CalendarCacheHits   prometheus.Counter
	CalendarCacheMisses prometheus.Counter
	CacheInvalidations  prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	RateLimited         prometheus.Counter
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EditsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "addebiti_edits_applied_total",
			Help: "Total number of payment edits applied, by scope",
		}, []string{"scope"}),
		CalendarCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "addebiti_calendar_cache_hits_total",
			Help: "Calendar requests served from cache",
		}),
		CalendarCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "addebiti_calendar_cache_misses_total",
			Help: "Calendar requests computed from the stores",
		}),
		CacheInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "addebiti_calendar_cache_invalidations_total",
			Help: "Calendar cache entries dropped after payment changes",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "addebiti_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "addebiti_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "addebiti_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

func (m *Metrics) IncrementEdits(scope string) {
	m.EditsApplied.WithLabelValues(scope).Inc()
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CalendarCacheHits.Inc()
		return
	}
	m.CalendarCacheMisses.Inc()
}

func (m *Metrics) AddInvalidations(n int) {
	if n > 0 {
		m.CacheInvalidations.Add(float64(n))
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) IncrementRateLimited() {
	m.RateLimited.Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
