package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "notes"
	metricsSubsystem = "http"

	unmatchedRoute = "unmatched"
)

// latencyBuckets cover the two latency classes this service has: argon2
// hashing puts signUp and signIn in the tens-to-hundreds of milliseconds,
// everything else is single-digit.
var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HTTPMetrics instruments the HTTP surface: request counts and latencies per
// route, in-flight requests, and rejections at the auth gate.
type HTTPMetrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     prometheus.Gauge
	authRejected prometheus.Counter
}

// NewHTTPMetrics builds and registers the collectors. A nil registerer means
// the default Prometheus registry.
func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_total",
			Help:      "Requests served, partitioned by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Request latency in seconds, partitioned by method and route.",
			Buckets:   latencyBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "in_flight_requests",
			Help:      "Requests currently being served.",
		}),
		authRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "auth_rejections_total",
			Help:      "Requests rejected with 401, at the auth gate or by a lifecycle endpoint.",
		}),
	}

	for _, collector := range []prometheus.Collector{m.requests, m.duration, m.inFlight, m.authRejected} {
		if err := registerCollector(reg, collector); err != nil {
			return nil, fmt.Errorf("register http metrics: %w", err)
		}
	}

	return m, nil
}

// registerCollector tolerates re-registration so the constructor can run
// more than once against the default registry.
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	err := reg.Register(c)
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// Handler records the collectors for every request passing through the
// engine. Unmatched paths share one route label so random URLs cannot blow
// up label cardinality.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()

		c.Next()

		m.inFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		status := c.Writer.Status()
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())

		if status == http.StatusUnauthorized {
			m.authRejected.Inc()
		}
	}
}
