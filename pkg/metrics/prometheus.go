package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	classified  *prometheus.CounterVec
	dropped     prometheus.Counter
	renders     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		classified: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcavis_classified_entries_total",
				Help: "Datasets placed into each result category",
			},
			[]string{"category"},
		),
		dropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tcavis_dropped_keys_total",
				Help: "Raw result keys matching no naming convention",
			},
		),
		renders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcavis_render_entries_total",
				Help: "Rendered entries by category and outcome",
			},
			[]string{"category", "status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcavis_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tcavis_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordClassified adds n datasets to a category counter.
func (r *Recorder) RecordClassified(category string, n int) {
	r.classified.WithLabelValues(category).Add(float64(n))
}

// RecordDropped counts unrecognised keys.
func (r *Recorder) RecordDropped(n int) {
	r.dropped.Add(float64(n))
}

// RecordRender records one rendered entry.
func (r *Recorder) RecordRender(category, status string) {
	r.renders.WithLabelValues(category, status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordClassified(string, int)  {}
func (Noop) RecordDropped(int)             {}
func (Noop) RecordRender(string, string)   {}
func (Noop) RecordError(string)            {}
func (Noop) RecordLatency(string, float64) {}
