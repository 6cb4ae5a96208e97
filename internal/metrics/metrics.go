package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Graded          *prometheus.CounterVec
	Score           *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		Graded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grading_answers_total",
				Help: "Answers graded, by question type and outcome",
			},
			[]string{"type", "outcome"},
		),
		Score: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grading_score",
				Help:    "Distribution of awarded scores",
				Buckets: []float64{0, 20, 40, 50, 60, 80, 99, 100},
			},
			[]string{"type"},
		),
	}
	m.registry.MustRegister(m.RequestCounter, m.RequestDuration, m.Graded, m.Score)
	return m
}

// ObserveGrade records one graded answer.
func (m *Metrics) ObserveGrade(questionType string, score int) {
	if m == nil {
		return
	}
	outcome := "partial"
	switch {
	case score >= 100:
		outcome = "correct"
	case score <= 0:
		outcome = "incorrect"
	}
	m.Graded.WithLabelValues(questionType, outcome).Inc()
	m.Score.WithLabelValues(questionType).Observe(float64(score))
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(ww.Status())).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
