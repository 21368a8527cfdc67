package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	dosesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doses_recorded_total",
			Help: "Dose events appended to the store.",
		},
		[]string{"medicine"},
	)
	dosesDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doses_deleted_total",
			Help: "Dose events removed by the same-day delete action.",
		},
		[]string{"medicine"},
	)
	rescueRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rescue_cooldown_rejections_total",
			Help: "Rescue doses rejected because the minimum interval had not elapsed.",
		},
	)
	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Event store failures by operation.",
		},
		[]string{"op"},
	)
	degradedViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degraded_views_total",
			Help: "Views rendered with an empty history because the store could not be read.",
		},
		[]string{"view"},
	)

	registerOnce sync.Once
)

// Register es idempotente: el router se construye varias veces en tests.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpLatency, dosesRecorded, dosesDeleted, rescueRejected, storeErrors, degradedViews)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument usa el patrón de ruta de chi como label para no explotar la cardinalidad
// con /delete/{name}.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(srw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(srw.statusCode)).Inc()
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func IncDoseRecorded(medicine string) {
	dosesRecorded.WithLabelValues(medicine).Inc()
}

func IncDoseDeleted(medicine string) {
	dosesDeleted.WithLabelValues(medicine).Inc()
}

func IncRescueRejected() {
	rescueRejected.Inc()
}

func IncStoreError(op string) {
	storeErrors.WithLabelValues(op).Inc()
}

func IncDegradedView(view string) {
	degradedViews.WithLabelValues(view).Inc()
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
