package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution sources recorded in metrics.
const (
	sourceRoute    = "route"
	sourceStatic   = "static"
	sourceIndex    = "index"
	sourceFallback = "fallback"
	sourceError    = "error"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deno_adapter",
			Name:      "requests_total",
			Help:      "Requests handled, by the step of the decision chain that answered them.",
		}, []string{"source"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deno_adapter",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
}

func (m *metrics) observe(source string, elapsed time.Duration) {
	m.requests.WithLabelValues(source).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}
