// Package metrics provides Prometheus metrics collection for DataGate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for DataGate.
type Collector struct {
	// Call metrics
	CallsTotal    *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	CallAttempts  *prometheus.HistogramVec
	CallsInFlight prometheus.Gauge

	// Retry metrics
	Retries *prometheus.CounterVec

	// Transport metrics
	TransportErrors *prometheus.CounterVec

	// Credential metrics
	CredentialRefreshes prometheus.Counter

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(factory promauto.Factory) *Collector {
	return &Collector{
		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datagate",
				Name:      "calls_total",
				Help:      "Total number of calls executed",
			},
			[]string{"resource", "operation", "status"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "datagate",
				Name:      "call_duration_seconds",
				Help:      "Call duration in seconds, retries included",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"resource", "operation"},
		),
		CallAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "datagate",
				Name:      "call_attempts",
				Help:      "Attempts consumed per call",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
			[]string{"resource"},
		),
		CallsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "datagate",
				Name:      "calls_in_flight",
				Help:      "Number of calls currently executing",
			},
		),
		Retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datagate",
				Name:      "retries_total",
				Help:      "Total number of calls that consumed at least one retry",
			},
			[]string{"resource"},
		),
		TransportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datagate",
				Name:      "transport_errors_total",
				Help:      "Total number of failed exchanges by kind",
			},
			[]string{"type"},
		),
		CredentialRefreshes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datagate",
				Name:      "credential_refreshes_total",
				Help:      "Total number of bearer tokens captured from responses",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datagate",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datagate",
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "datagate",
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}
