package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	TransportRequests *prometheus.CounterVec
	TransportRetries  prometheus.Counter
	AuthFailures      prometheus.Counter

	Reconciliations     prometheus.Counter
	ReconcileCoalesced  prometheus.Counter
	ReconcileDuration   prometheus.Histogram
	ActiveNumbers       prometheus.Gauge
	NumbersRequested    prometheus.Counter
	NumbersCancelled    prometheus.Counter
	NumbersReactivated  prometheus.Counter
	PaymentsCreated     *prometheus.CounterVec
	PaymentsSettled     prometheus.Counter
	CatalogDegradations prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransportRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jackbear_transport_requests_total",
			Help: "Total transport round-trips, labeled by path and outcome",
		}, []string{"path", "outcome"}),
		TransportRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_transport_retries_total",
			Help: "Total automatic single retries after a network failure",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_auth_failures_total",
			Help: "Total credential rejections (401) observed by the transport",
		}),
		Reconciliations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_reconciliations_total",
			Help: "Total completed ledger reconciliation rounds",
		}),
		ReconcileCoalesced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_reconcile_coalesced_total",
			Help: "Reconcile requests that piggybacked on an in-flight round",
		}),
		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "jackbear_reconcile_duration_seconds",
			Help:    "Duration of a full reconciliation round",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveNumbers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "jackbear_active_numbers",
			Help: "Numbers currently in the waiting state",
		}),
		NumbersRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_numbers_requested_total",
			Help: "Total successful number rentals",
		}),
		NumbersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_numbers_cancelled_total",
			Help: "Total user-cancelled numbers",
		}),
		NumbersReactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_numbers_reactivated_total",
			Help: "Total number reactivations",
		}),
		PaymentsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jackbear_payments_created_total",
			Help: "Payment sessions created, labeled by gateway",
		}, []string{"gateway"}),
		PaymentsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_payments_settled_total",
			Help: "Payment sessions observed reaching the completed state",
		}),
		CatalogDegradations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jackbear_catalog_degradations_total",
			Help: "Catalog refreshes that degraded to an empty list because the authority lacks the endpoint",
		}),
	}
}
