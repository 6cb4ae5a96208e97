package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveGrade(t *testing.T) {
	m := New()
	m.ObserveGrade("short_answer", 100)
	m.ObserveGrade("short_answer", 50)
	m.ObserveGrade("short_answer", 0)
	m.ObserveGrade("multiple_choice", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Graded.WithLabelValues("short_answer", "correct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Graded.WithLabelValues("short_answer", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Graded.WithLabelValues("multiple_choice", "incorrect")))

	var nilM *Metrics
	assert.NotPanics(t, func() { nilM.ObserveGrade("x", 1) })
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/problems/{id}", func(w http.ResponseWriter, r *http.Request) {})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/problems/a", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/problems/{id}", "200")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
