package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	proction "github.com/nontan-rh/proction"
)

// Sink is a proction.MetricsSink backed by Prometheus collectors,
// registered once against a caller-supplied Registerer: a histogram for
// settle latency, a gauge for in-flight work, counters for failures and
// detected leaks.
type Sink struct {
	active  prometheus.Gauge
	latency prometheus.Histogram
	failed  prometheus.Counter
	leaked  prometheus.Counter
}

// NewSink registers proction's collectors against reg and returns a Sink
// ready to pass to proction.WithMetrics. reg is typically
// prometheus.NewRegistry() in tests, or prometheus.DefaultRegisterer in
// production.
func NewSink(reg prometheus.Registerer) *Sink {
	factory := promauto.With(reg)
	return &Sink{
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "proction",
			Name:      "invocations_active",
			Help:      "Number of currently dispatched invocations.",
		}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "proction",
			Name:      "invocation_duration_seconds",
			Help:      "Invocation dispatch-to-settle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "proction",
			Name:      "invocations_failed_total",
			Help:      "Total invocations that settled with an error.",
		}),
		leaked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "proction",
			Name:      "leaked_intermediates_total",
			Help:      "Total intermediate slots found unfreed by the leak audit.",
		}),
	}
}

func (s *Sink) InvocationStarted() { s.active.Inc() }

func (s *Sink) InvocationSettled(dur time.Duration, err error) {
	s.active.Dec()
	s.latency.Observe(dur.Seconds())
	if err != nil {
		s.failed.Inc()
	}
}

func (s *Sink) LeakDetected() { s.leaked.Inc() }

var _ proction.MetricsSink = (*Sink)(nil)
