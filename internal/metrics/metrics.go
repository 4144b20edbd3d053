// Package metrics holds the Prometheus collectors of the application.
// All record methods are safe on a nil *Metrics so tests can skip wiring.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-katalog/internal/httpx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	service string

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	statusCategory *prometheus.CounterVec

	catalogQueries  *prometheus.CounterVec
	catalogDuration prometheus.Histogram
	cacheLookups    *prometheus.CounterVec

	gateDenials   *prometheus.CounterVec
	offersCreated prometheus.Counter
	rateLimited   *prometheus.CounterVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer, service string) (*Metrics, error) {
	m := &Metrics{
		service: service,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path", "status"}),
		statusCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_status_category_total",
			Help: "Total number of responses by status category (2xx, 3xx, 4xx, 5xx)",
		}, []string{"service", "category"}),
		catalogQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Catalog searches by outcome",
		}, []string{"result"}),
		catalogDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Duration of catalog searches in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "category_cache_lookups_total",
			Help: "Category cache lookups by outcome",
		}, []string{"result"}),
		gateDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_denials_total",
			Help: "Requests turned away by the authorization gate",
		}, []string{"capability", "reason"}),
		offersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offers_created_total",
			Help: "Offers placed on products",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"path"}),
	}

	for _, c := range []prometheus.Collector{
		m.requests, m.duration, m.statusCategory,
		m.catalogQueries, m.catalogDuration, m.cacheLookups,
		m.gateDenials, m.offersCreated, m.rateLimited,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Middleware records request count, latency and status category. It must
// wrap the ServeMux directly so r.Pattern is populated after routing.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := httpx.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := rec.Status()
		statusStr := strconv.Itoa(status)
		m.requests.WithLabelValues(m.service, r.Method, path, statusStr).Inc()
		m.duration.WithLabelValues(m.service, r.Method, path, statusStr).Observe(time.Since(start).Seconds())
		m.statusCategory.WithLabelValues(m.service, strconv.Itoa(status/100)+"xx").Inc()
	})
}

func (m *Metrics) ObserveCatalogQuery(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.catalogQueries.WithLabelValues(result).Inc()
	m.catalogDuration.Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) GateDenied(capability, reason string) {
	if m == nil {
		return
	}
	m.gateDenials.WithLabelValues(capability, reason).Inc()
}

func (m *Metrics) OfferCreated() {
	if m == nil {
		return
	}
	m.offersCreated.Inc()
}

func (m *Metrics) RateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(path).Inc()
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
