package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := New(reg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, reg
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /katalog/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/katalog", http.StatusSeeOther)
	})
	h := m.Middleware(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/katalog/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/katalog/2", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if got := testutil.ToFloat64(m.requests.WithLabelValues("test", "GET", "GET /katalog/{id}", "303")); got != 2 {
		t.Errorf("routed requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("test", "GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.statusCategory.WithLabelValues("test", "3xx")); got != 2 {
		t.Errorf("3xx = %v, want 2", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.ObserveCatalogQuery(time.Millisecond, nil)
	m.ObserveCatalogQuery(time.Millisecond, errors.New("db down"))
	m.GateDenied("admin", "role")
	m.OfferCreated()
	m.CacheLookup(true)
	m.RateLimited("/login")

	if got := testutil.ToFloat64(m.catalogQueries.WithLabelValues("error")); got != 1 {
		t.Errorf("catalog errors = %v", got)
	}
	if got := testutil.ToFloat64(m.gateDenials.WithLabelValues("admin", "role")); got != 1 {
		t.Errorf("gate denials = %v", got)
	}
	if got := testutil.ToFloat64(m.offersCreated); got != 1 {
		t.Errorf("offers = %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCatalogQuery(time.Second, nil)
	m.GateDenied("session", "missing")
	m.OfferCreated()
	m.CacheLookup(false)
	m.RateLimited("/login")
	called := false
	m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("nil middleware did not call next")
	}
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := New(reg, "a"); err == nil {
		t.Fatal("second New on the same registry should fail")
	}
}

func TestHandler(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.OfferCreated()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "offers_created_total 1") {
		t.Errorf("exposition missing counter:\n%s", rec.Body.String())
	}
}
