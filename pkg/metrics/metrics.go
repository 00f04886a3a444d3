package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid_configuration"
	OutcomeInternalFail = "error"
)

// Recorder records grouping runs. The zero value of *Recorder (nil) is a
// valid no-op recorder.
type Recorder struct {
	gatherer     prometheus.Gatherer
	runs         *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	satisfaction *prometheus.HistogramVec
}

// NewPrometheus creates a Recorder registered on reg.
//
// Parameters:
//   - reg: registry to register on (a fresh registry when nil)
//   - namespace: metrics namespace (defaults to "grouper" if empty)
func NewPrometheus(reg *prometheus.Registry, namespace string) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "grouper"
	}

	r := &Recorder{
		gatherer: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grouping",
			Name:      "runs_total",
			Help:      "Total grouping runs by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grouping",
			Name:      "duration_seconds",
			Help:      "Wall time of successful grouping runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		}, []string{"strategy"}),
		satisfaction: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grouping",
			Name:      "satisfaction",
			Help:      "Overall satisfaction of preference based runs.",
			Buckets:   []float64{-20, -10, -5, 0, 5, 10, 20, 50, 100},
		}, []string{"strategy"}),
	}
	reg.MustRegister(r.runs, r.duration, r.satisfaction)
	return r
}

// ObserveRun records one grouping run
func (r *Recorder) ObserveRun(strategy, outcome string, elapsed time.Duration, satisfaction *float64) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(strategy, outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	r.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if satisfaction != nil {
		r.satisfaction.WithLabelValues(strategy).Observe(*satisfaction)
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
