// Package metrics provides Prometheus metrics collection for the WAF console.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	// Event stream metrics
	StreamConnects    *prometheus.CounterVec
	StreamEvents      *prometheus.CounterVec
	StreamSubscribers prometheus.Gauge

	// Monitor upstream metrics
	UpstreamErrors   *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Payment metrics
	PaymentConfirms *prometheus.CounterVec
	PaymentCancels  *prometheus.CounterVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsSwept   prometheus.Counter
	SessionFailures *prometheus.CounterVec

	// Config metrics
	ConfigReloads prometheus.Counter
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		StreamConnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wafconsole",
				Name:      "stream_connects_total",
				Help:      "Event stream subscriptions by scope",
			},
			[]string{"scope"},
		),
		StreamEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wafconsole",
				Name:      "stream_events_total",
				Help:      "Events relayed to subscribers by kind",
			},
			[]string{"kind"},
		),
		StreamSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "wafconsole",
				Name:      "stream_subscribers",
				Help:      "Number of active event stream subscribers",
			},
		),

		UpstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wafconsole",
				Name:      "upstream_errors_total",
				Help:      "Monitor server request failures by endpoint",
			},
			[]string{"endpoint"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wafconsole",
				Name:      "upstream_duration_seconds",
				Help:      "Monitor server request duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),

		PaymentConfirms: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wafconsole",
				Name:      "payment_confirms_total",
				Help:      "Payment confirmation attempts by outcome",
			},
			[]string{"outcome"},
		),
		PaymentCancels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wafconsole",
				Name:      "payment_cancels_total",
				Help:      "Payment cancellation attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "wafconsole",
				Name:      "sessions_active",
				Help:      "Number of live sessions in the store",
			},
		),
		SessionsSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wafconsole",
				Name:      "sessions_swept_total",
				Help:      "Expired sessions removed by the sweeper",
			},
		),
		SessionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wafconsole",
				Name:      "session_failures_total",
				Help:      "Session validation failures by reason",
			},
			[]string{"reason"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wafconsole",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
	}
}
