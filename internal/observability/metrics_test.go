package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/plugtech/findash/internal/jobs"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("analytics:cache_warmup").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, "findash_jobs_total") {
		t.Fatalf("expected body to contain findash_jobs_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/reports/cashflow")

	req := httptest.NewRequest(http.MethodGet, "/reports/cashflow", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "findash_http_requests_total{code=\"418\",route=\"/reports/cashflow\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "findash_http_request_duration_seconds_bucket{route=\"/reports/cashflow\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestQueryAndCacheObservations(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveQuery(120*time.Millisecond, nil)
	metrics.ObserveQuery(time.Second, errors.New("lock conflict"))
	metrics.ObserveCache(true)
	metrics.ObserveCache(false)
	metrics.ObserveCache(false)

	body := scrape(t, metrics)
	for _, want := range []string{
		"findash_query_duration_seconds_count{outcome=\"ok\"} 1",
		"findash_query_duration_seconds_count{outcome=\"error\"} 1",
		"findash_cache_lookups_total{result=\"hit\"} 1",
		"findash_cache_lookups_total{result=\"miss\"} 2",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveQuery(time.Second, nil)
	metrics.ObserveCache(true)
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}
