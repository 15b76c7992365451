package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/blog-search/backend/internal/metrics"
)

func TestObserveQuery(t *testing.T) {
	hit := testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("hit"))
	miss := testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("miss"))
	empty := testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("empty"))

	metrics.ObserveQuery("rust", 2)
	metrics.ObserveQuery("python", 0)
	metrics.ObserveQuery("", 0)

	require.InDelta(t, hit+1, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("hit")), 0)
	require.InDelta(t, miss+1, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("miss")), 0)
	require.InDelta(t, empty+1, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("empty")), 0)
}

func TestObserveIndexLoad(t *testing.T) {
	metrics.ObserveIndexLoad(42, nil)
	require.InDelta(t, 42, testutil.ToFloat64(metrics.IndexRecords), 0)

	metrics.ObserveIndexLoad(0, errors.New("unreachable"))
	require.InDelta(t, 0, testutil.ToFloat64(metrics.IndexRecords), 0)
}

func TestMiddlewarePassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/teapot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}
