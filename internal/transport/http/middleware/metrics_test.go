package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newMetricsRouter(t *testing.T) (*gin.Engine, *HTTPMetrics) {
	t.Helper()

	m, err := NewHTTPMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTPMetrics returned error: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/locked", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })
	return r, m
}

func TestHTTPMetricsCountsRequestsPerRoute(t *testing.T) {
	r, m := newMetricsRouter(t)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/ok", "200"))
	if got != 3 {
		t.Fatalf("expected 3 requests recorded, got %v", got)
	}
}

func TestHTTPMetricsCountsAuthRejections(t *testing.T) {
	r, m := newMetricsRouter(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/locked", nil))

	if got := testutil.ToFloat64(m.authRejected); got != 1 {
		t.Fatalf("expected 1 auth rejection recorded, got %v", got)
	}
}

func TestHTTPMetricsCollapsesUnmatchedRoutes(t *testing.T) {
	r, m := newMetricsRouter(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/path", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/another/miss", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	if got != 2 {
		t.Fatalf("expected 2 unmatched requests under one label, got %v", got)
	}
}

func TestHTTPMetricsRegistersTwiceWithoutError(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewHTTPMetrics(reg); err != nil {
		t.Fatalf("first NewHTTPMetrics returned error: %v", err)
	}
	if _, err := NewHTTPMetrics(reg); err != nil {
		t.Fatalf("second NewHTTPMetrics returned error: %v", err)
	}
}

func TestHTTPMetricsNilHandlerPassesThrough(t *testing.T) {
	var m *HTTPMetrics

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
