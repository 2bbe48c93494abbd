// Package metrics records protocol server activity in a Prometheus registry.
//
// The server has no network listener, so the registry is exported to a
// node_exporter textfile on shutdown instead of being scraped.
package metrics

import (
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for RequestsTotal.
const (
	OutcomeOK           = "ok"
	OutcomeError        = "error"
	OutcomeNotification = "notification"
)

// Recorder owns the server metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queueDepth      prometheus.Gauge
	inflight        prometheus.Gauge
}

// New returns a Recorder backed by a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stylusport",
				Name:      "requests_total",
				Help:      "Total number of dispatched messages",
			},
			[]string{"method", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stylusport",
				Name:      "request_duration_seconds",
				Help:      "Dispatch duration in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method"},
		),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stylusport",
			Name:      "queue_depth",
			Help:      "Messages waiting for a worker",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stylusport",
			Name:      "inflight_requests",
			Help:      "Messages currently being processed by workers",
		}),
	}
	r.registry.MustRegister(r.requestsTotal, r.requestDuration, r.queueDepth, r.inflight)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRequest counts one processed message.
func (r *Recorder) ObserveRequest(method, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(method, outcome).Inc()
	r.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// SetQueueDepth records the number of queued messages.
func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

// Begin marks a message as in flight and returns the func ending it.
func (r *Recorder) Begin() func() {
	if r == nil {
		return func() {}
	}
	r.inflight.Inc()
	return r.inflight.Dec
}

// WriteTextfile writes the registry in the text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return failure.Wrap(err,
			failure.Message("failed to write metrics textfile"),
			failure.Context{"path": path},
		)
	}
	return nil
}
