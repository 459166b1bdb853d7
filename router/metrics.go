package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all the Prometheus metrics for the swap router.
type Metrics struct {
	// --- Tier 1: Critical System Health ---
	TradesTotal *prometheus.CounterVec
	ErrorsTotal *prometheus.CounterVec

	// --- Tier 2: Performance ---
	TradeDuration *prometheus.HistogramVec

	// --- Tier 3: Administration ---
	MigrationPages *prometheus.CounterVec
}

// NewMetrics creates and registers all the Prometheus metrics for the router.
func NewMetrics(reg prometheus.Registerer, systemName string) *Metrics {
	return &Metrics{
		TradesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: systemName,
			Name:      "swap_router_trades_total",
			Help:      "Total number of settled trades, labeled by side.",
		}, []string{"side"}),

		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: systemName,
			Name:      "swap_router_errors_total",
			Help:      "Total number of rejected or reverted trades, labeled by reason.",
		}, []string{"reason"}),

		TradeDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: systemName,
			Name:      "swap_router_trade_duration_seconds",
			Help:      "A histogram of the time it takes to settle one trade end to end.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"side"}),

		MigrationPages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: systemName,
			Name:      "swap_router_allowlist_migration_pages_total",
			Help:      "Total number of allow-list pages re-pointed during router migrations.",
		}, []string{}),
	}
}
