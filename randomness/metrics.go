package randomness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all the Prometheus metrics for the fulfillment engine.
// Encapsulating them in a struct keeps the engine struct clean.
type Metrics struct {
	// --- Tier 1: Critical System Health ---
	RequestsTotal *prometheus.CounterVec
	OpenRequests  *prometheus.GaugeVec

	// --- Tier 2: Performance ---
	ClaimDuration *prometheus.HistogramVec

	// --- Tier 3: Fund Safety ---
	RefundsTotal *prometheus.CounterVec
	EscrowHeld   *prometheus.GaugeVec
}

// NewMetrics creates and registers all the Prometheus metrics for the engine.
func NewMetrics(reg prometheus.Registerer, systemName string) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: systemName,
			Name:      "random_fulfillment_requests_total",
			Help:      "Total number of buy requests, labeled by lifecycle transition.",
		}, []string{"transition"}),

		OpenRequests: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: systemName,
			Name:      "random_fulfillment_open_requests",
			Help:      "The current number of non-terminal (pending or fulfilled) buy requests.",
		}, []string{}),

		ClaimDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: systemName,
			Name:      "random_fulfillment_claim_duration_seconds",
			Help:      "A histogram of the time it takes to resolve a claim, including the pool swap.",
			Buckets:   prometheus.DefBuckets,
		}, []string{}),

		RefundsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: systemName,
			Name:      "random_fulfillment_refunds_total",
			Help:      "Total number of full escrow refunds, labeled by the path that triggered them.",
		}, []string{"path"}),

		EscrowHeld: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: systemName,
			Name:      "random_fulfillment_escrow_held_wei",
			Help:      "Approximate total escrow currently held for open requests, in wei.",
		}, []string{}),
	}
}
