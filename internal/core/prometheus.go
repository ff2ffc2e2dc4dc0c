package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder implements MetricsRecorder on Prometheus
// primitives: a histogram of operation latencies and a counter of outcomes,
// both labeled by operation and status.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder builds a recorder and registers its
// collectors with reg. A nil registerer falls back to the default registry.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusMetricsRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "surveycore",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Latency of survey service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveycore",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Count of survey service operations by outcome.",
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{r.durations, r.results} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation, status).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}
