package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authzDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization guard decisions by outcome.",
		},
		[]string{"outcome"},
	)

	auditImportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_imports_total",
		Help: "Completed audit serial-number imports.",
	})

	auditItemsUpserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_items_upserted_total",
		Help: "Audit items inserted or updated by imports.",
	})

	sessionsPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_purged_total",
		Help: "Expired or revoked sessions reclaimed by the purge job.",
	})
)

// Init registers collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		authzDecisionsTotal,
		auditImportsTotal,
		auditItemsUpserted,
		sessionsPurgedTotal,
	)
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthzDecision records one guard outcome.
func AuthzDecision(outcome string) {
	authzDecisionsTotal.WithLabelValues(outcome).Inc()
}

// AuditImport records a completed import and the rows it touched.
func AuditImport(itemsUpserted int) {
	auditImportsTotal.Inc()
	auditItemsUpserted.Add(float64(itemsUpserted))
}

// SessionsPurged records rows reclaimed by the purge job.
func SessionsPurged(count int64) {
	sessionsPurgedTotal.Add(float64(count))
}

// Instrument wraps a handler with request count and latency metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(sw, r)

		// The route pattern keeps the label set bounded; raw paths would
		// mint a new series per user or audit id.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := strconv.Itoa(sw.code)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
