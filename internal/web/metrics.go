package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evcraddock/pool-route/internal/rest"
	"github.com/evcraddock/pool-route/internal/store"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pool",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, table and status code.",
		}, []string{"method", "table", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and table.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "table"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts and times table API requests.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, rest.BasePath) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		table := tableLabel(r.URL.Path)
		m.requests.WithLabelValues(r.Method, table, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(r.Method, table).Observe(time.Since(start).Seconds())
	})
}

// tableLabel bounds label cardinality to known table names.
func tableLabel(path string) string {
	name := strings.Trim(strings.TrimPrefix(path, rest.BasePath), "/")
	if name == "" {
		return "root"
	}
	if _, err := store.LookupTable(name); err != nil {
		return "unknown"
	}
	return name
}
