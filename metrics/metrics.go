// Package metrics exposes Prometheus collectors for the cyclic
// engine's operator-facing counters: cycle timing, PDO health, SDO
// fallback rate, and command-queue overflow. The engine observes
// CycleDuration and CycleOverruns after each cycle, and increments
// SdoFallbackTotal inside its object-write path whenever a write falls
// back to SDO. PdoHealth, the queue counters and the master link
// collectors are registered here; no code in this module updates them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the cyclic engine and supervisor
// update.
type Metrics struct {
	CycleDuration    prometheus.Histogram
	CycleOverruns    prometheus.Counter
	PdoHealth        *prometheus.GaugeVec
	SdoFallbackTotal *prometheus.CounterVec
	CommandQueueOverflowsTotal prometheus.Counter
	StatusQueueDroppedTotal    prometheus.Counter

	MasterLinkUp     prometheus.Gauge
	MasterLostFrames prometheus.Counter
}

// New creates a Metrics instance registered against the default
// Prometheus registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against the
// given registerer, so tests and embedders can avoid the global
// default registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecatcyclic_cycle_duration_seconds",
			Help:    "Wall-clock duration of one cyclic engine iteration.",
			Buckets: []float64{.0001, .0002, .0005, .001, .002, .005, .01, .02, .05},
		}),
		CycleOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecatcyclic_cycle_overruns_total",
			Help: "Cycles whose elapsed time exceeded the configured period.",
		}),
		PdoHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ecatcyclic_pdo_object_health",
			Help: "Per-object PDO health (0=mapped, 1=missing, 2=error).",
		}, []string{"drive", "object"}),
		SdoFallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecatcyclic_sdo_fallback_total",
			Help: "SDO downloads issued because an object was not PDO-mapped.",
		}, []string{"drive", "object"}),
		CommandQueueOverflowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecatcyclic_command_queue_overflows_total",
			Help: "Command enqueue attempts rejected because the command queue was full.",
		}),
		StatusQueueDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecatcyclic_status_queue_dropped_total",
			Help: "Status snapshots discarded by the status queue's drop-oldest policy.",
		}),
		MasterLinkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecatcyclic_master_link_up",
			Help: "1 if the EtherCAT master reports link up, else 0.",
		}),
		MasterLostFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecatcyclic_master_lost_frames_total",
			Help: "Cumulative lost-frame count reported by the master adapter.",
		}),
	}
	reg.MustRegister(
		m.CycleDuration,
		m.CycleOverruns,
		m.PdoHealth,
		m.SdoFallbackTotal,
		m.CommandQueueOverflowsTotal,
		m.StatusQueueDroppedTotal,
		m.MasterLinkUp,
		m.MasterLostFrames,
	)
	return m
}
