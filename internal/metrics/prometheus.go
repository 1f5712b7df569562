package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/torosent/flood/internal/rawhttp"
)

// PromObserver exports outcome counters to Prometheus. Create one per
// registry; nothing is registered globally.
type PromObserver struct {
	requests prometheus.Counter
	failed   *prometheus.CounterVec
	latency  prometheus.Histogram
	bytes    prometheus.Counter
}

// NewPromObserver creates the collectors and registers them on reg.
func NewPromObserver(reg prometheus.Registerer) (*PromObserver, error) {
	o := &PromObserver{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadtest_requests_total",
			Help: "Total Requests Sent",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadtest_requests_failed",
			Help: "Failed Requests",
		}, []string{"kind"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loadtest_request_duration_seconds",
			Help:    "Latency distribution of completed requests",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadtest_response_bytes_total",
			Help: "Response bytes received",
		}),
	}
	for _, c := range []prometheus.Collector{o.requests, o.failed, o.latency, o.bytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Observe implements Observer.
func (o *PromObserver) Observe(outcome rawhttp.Outcome) {
	if outcome.Latency > 0 {
		o.latency.Observe(outcome.Latency.Seconds())
	}
	if outcome.Success() {
		o.requests.Inc()
		o.bytes.Add(float64(outcome.Size))
		return
	}
	o.failed.WithLabelValues(rawhttp.Kind(outcome.Err)).Inc()
}
