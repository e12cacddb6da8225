// Package metrics holds the Prometheus collectors of the orders service.
//
// HTTP collectors are fed by middleware.Metrics; the domain collectors are fed
// by the prescription and dispense services. Everything is registered with the
// default registry at init and served on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	ReconcileOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prescription_reconcile_operations_total",
			Help: "Line mutations issued by group reconciles, by operation",
		},
		[]string{"op"},
	)

	IdentifierDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prescription_identifier_decisions_total",
			Help: "Group identifier resolutions, by decision",
		},
		[]string{"decision"},
	)

	DispenseGateRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispense_gate_rejections_total",
			Help: "Dispense requests refused by the stock gate, by reason",
		},
		[]string{"reason"},
	)

	DispenseHandovers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispense_handovers_total",
			Help: "Dispenses moved to completed by hand-over",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(ReconcileOperations)
	prometheus.MustRegister(IdentifierDecisions)
	prometheus.MustRegister(DispenseGateRejections)
	prometheus.MustRegister(DispenseHandovers)
}
