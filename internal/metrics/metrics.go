package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blogsearch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blogsearch",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// QueriesTotal counts search queries by outcome: hit, miss or empty.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blogsearch",
			Name:      "queries_total",
			Help:      "Search queries by outcome",
		},
		[]string{"outcome"},
	)

	// StaleInputsTotal counts input events discarded because a newer one was already rendered.
	StaleInputsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blogsearch",
			Name:      "stale_inputs_total",
			Help:      "Input events dropped as out of order",
		},
	)

	// IndexLoadsTotal counts index load attempts by result.
	IndexLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blogsearch",
			Name:      "index_loads_total",
			Help:      "Search index load attempts",
		},
		[]string{"result"},
	)

	// IndexRecords reports how many posts the index holds.
	IndexRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blogsearch",
			Name:      "index_records",
			Help:      "Posts held by the in-memory search index",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestsTotal,
		QueriesTotal,
		StaleInputsTotal,
		IndexLoadsTotal,
		IndexRecords,
	)
}

// ObserveQuery records the outcome of one search.
func ObserveQuery(query string, hits int) {
	switch {
	case query == "":
		QueriesTotal.WithLabelValues("empty").Inc()
	case hits == 0:
		QueriesTotal.WithLabelValues("miss").Inc()
	default:
		QueriesTotal.WithLabelValues("hit").Inc()
	}
}

// ObserveIndexLoad records the single index load attempt.
func ObserveIndexLoad(count int, err error) {
	if err != nil {
		IndexLoadsTotal.WithLabelValues("error").Inc()
		IndexRecords.Set(0)
		return
	}
	IndexLoadsTotal.WithLabelValues("ok").Inc()
	IndexRecords.Set(float64(count))
}

// Middleware records HTTP request duration and count.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			status := strconv.Itoa(ww.status)
			path := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}

			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}
