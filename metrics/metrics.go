// Package metrics exposes the sync consumer's counters and gauges,
// following the teacher's per-subsystem Metrics struct pattern
// (blockchain/hot/metrics.go).
package metrics

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// Subsystem is shared by every metric this package exposes.
const Subsystem = "chain_sync"

// Metrics contains metrics exposed by the sync consumer.
type Metrics struct {
	// Height of the locally stored chain tip.
	Height metrics.Gauge
	// Number of Sync calls, by outcome.
	SyncAttempts metrics.Counter
	// Number of local blocks undone across all syncs.
	BlocksUndone metrics.Counter
	// Number of candidate blocks successfully applied.
	BlocksApplied metrics.Counter
	// Size of the current high-value account set.
	HighValueAccounts metrics.Gauge
	// Duration of the most recent Sync call, in seconds.
	LastSyncSeconds metrics.Gauge
}

// PrometheusMetrics returns Metrics built using the Prometheus client
// library. Optional labels can be provided along with their values
// ("network", "testnet").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "height",
			Help:      "Height of the locally stored chain tip.",
		}, labels).With(labelsAndValues...),

		SyncAttempts: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "sync_attempts_total",
			Help:      "Number of Sync calls, labeled by outcome.",
		}, append(labels, "outcome")).With(labelsAndValues...),

		BlocksUndone: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "blocks_undone_total",
			Help:      "Number of local blocks undone across all syncs.",
		}, labels).With(labelsAndValues...),

		BlocksApplied: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "blocks_applied_total",
			Help:      "Number of candidate blocks successfully applied.",
		}, labels).With(labelsAndValues...),

		HighValueAccounts: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "high_value_accounts",
			Help:      "Size of the current high-value account set.",
		}, labels).With(labelsAndValues...),

		LastSyncSeconds: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "last_sync_seconds",
			Help:      "Duration of the most recent Sync call, in seconds.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics, for tests and CLI subcommands that
// never wire a real registry.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:            discard.NewGauge(),
		SyncAttempts:      discard.NewCounter(),
		BlocksUndone:      discard.NewCounter(),
		BlocksApplied:     discard.NewCounter(),
		HighValueAccounts: discard.NewGauge(),
		LastSyncSeconds:   discard.NewGauge(),
	}
}
