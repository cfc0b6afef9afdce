package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gkobilansky/ab-advisor/internal/decision"
)

type metrics struct {
	// requests counts handled requests.
	// Labels: route (registered pattern), status
	requests *prometheus.CounterVec

	// latency measures handler latency in seconds.
	// Labels: route
	latency *prometheus.HistogramVec

	// decisions counts computed decisions.
	// Labels: test (fisher, z-test, chi-square), significant
	decisions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ab_advisor",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ab_advisor",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ab_advisor",
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Total decisions by test and significance",
		}, []string{"test", "significant"}),
	}
}

func (m *metrics) observeDecision(res *decision.Result) {
	m.decisions.WithLabelValues(string(res.Test), strconv.FormatBool(res.Significant)).Inc()
}

func (m *metrics) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
