package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for augmentation. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Dispatcher
	Augmented   *prometheus.CounterVec
	PassThrough prometheus.Counter
	Failures    *prometheus.CounterVec
	Latency     *prometheus.HistogramVec

	// Per-call degradations (token left as-is, sentence returned unchanged)
	Degraded *prometheus.CounterVec

	// Batch driver
	RecordsIn     prometheus.Counter
	RecordsOut    prometheus.Counter
	SkippedTrials prometheus.Counter

	// HTTP
	Requests    prometheus.Counter
	RateLimited prometheus.Counter
}

// New registers all collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Augmented: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textaug_augmented_total",
				Help: "Number of sentences rewritten, by strategy",
			},
			[]string{"strategy"},
		),
		PassThrough: f.NewCounter(prometheus.CounterOpts{
			Name: "textaug_pass_through_total",
			Help: "Number of dispatcher calls that returned the input unchanged by coin flip",
		}),
		Failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textaug_failures_total",
				Help: "Number of strategy calls that returned an error, by strategy",
			},
			[]string{"strategy"},
		),
		Latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "textaug_generate_seconds",
				Help:    "Latency of a single strategy call",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"strategy"},
		),
		Degraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textaug_degraded_total",
				Help: "Number of recoverable per-call failures degraded to a no-op",
			},
			[]string{"strategy", "reason"},
		),
		RecordsIn: f.NewCounter(prometheus.CounterOpts{
			Name: "textaug_records_in_total",
			Help: "Number of dataset records read by the batch driver",
		}),
		RecordsOut: f.NewCounter(prometheus.CounterOpts{
			Name: "textaug_records_out_total",
			Help: "Number of augmented records produced by the batch driver",
		}),
		SkippedTrials: f.NewCounter(prometheus.CounterOpts{
			Name: "textaug_skipped_attempts_total",
			Help: "Number of augmentation attempts skipped after a failure",
		}),
		Requests: f.NewCounter(prometheus.CounterOpts{
			Name: "textaug_http_requests_total",
			Help: "Number of augmentation requests received",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "textaug_http_rate_limited_total",
			Help: "Number of augmentation requests rejected by the rate limiter",
		}),
	}
}

// ObserveAugmented records one successful rewrite.
func (m *Metrics) ObserveAugmented(strategy string, seconds float64) {
	if m == nil {
		return
	}
	m.Augmented.WithLabelValues(strategy).Inc()
	m.Latency.WithLabelValues(strategy).Observe(seconds)
}

// ObservePassThrough records a call answered without augmentation.
func (m *Metrics) ObservePassThrough() {
	if m == nil {
		return
	}
	m.PassThrough.Inc()
}

// ObserveFailure records a strategy error.
func (m *Metrics) ObserveFailure(strategy string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(strategy).Inc()
}

// ObserveDegraded records a recoverable failure handled locally.
func (m *Metrics) ObserveDegraded(strategy, reason string) {
	if m == nil {
		return
	}
	m.Degraded.WithLabelValues(strategy, reason).Inc()
}

// ObserveBatch records batch driver totals.
func (m *Metrics) ObserveBatch(in, out, skipped int) {
	if m == nil {
		return
	}
	m.RecordsIn.Add(float64(in))
	m.RecordsOut.Add(float64(out))
	m.SkippedTrials.Add(float64(skipped))
}
