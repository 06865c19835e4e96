package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backupd_http_requests_total",
			Help: "Total number of API requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backupd_http_request_duration_seconds",
			Help:    "API request duration in seconds. Backups and restores hold the request open.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 30, 120, 600, 1800},
		},
		[]string{"operation"},
	)

	httpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backupd_http_requests_in_flight",
			Help: "API requests currently being served, by operation",
		},
		[]string{"operation"},
	)
)

// operations maps "METHOD pattern" to the operation label. Anything else is
// "other" so probing unknown paths cannot grow the label set.
var operations = map[string]string{
	"GET /api/v1/admin/backups":                "backup.list",
	"POST /api/v1/admin/backups":               "backup.create",
	"GET /api/v1/admin/backups/{backupID}":     "backup.get",
	"POST /api/v1/admin/backups/restore":       "backup.restore",
	"GET /api/v1/admin/backups/restore/status": "backup.restore_status",
	"GET /api/v1/admin/api-keys":               "api_key.list",
	"POST /api/v1/admin/api-keys":              "api_key.create",
	"DELETE /api/v1/admin/api-keys/{id}":       "api_key.revoke",
	"GET /healthz":                             "healthz",
	"GET /readyz":                              "readyz",
	"GET /metrics":                             "metrics",
}

func operationFor(method, pattern string) string {
	if op, ok := operations[method+" "+pattern]; ok {
		return op
	}
	return "other"
}

// Metrics is a chi middleware that records request counts, durations and
// in-flight requests per API operation.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		// Long-running operations are known from the path before routing.
		inFlight := operationFor(r.Method, r.URL.Path)
		httpRequestsInFlight.WithLabelValues(inFlight).Inc()
		defer httpRequestsInFlight.WithLabelValues(inFlight).Dec()

		next.ServeHTTP(ww, r)

		op := inFlight
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			op = operationFor(r.Method, rctx.RoutePattern())
		}

		httpRequestsTotal.WithLabelValues(op, strconv.Itoa(ww.status)).Inc()
		httpRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	})
}

// statusWriter records the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
