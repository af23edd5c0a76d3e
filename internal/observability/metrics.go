package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// zone monitor.
type Metrics struct {
	CyclesTotal   *prometheus.CounterVec // labels: zone, outcome={success,failure,skipped}
	CycleFailures *prometheus.CounterVec // labels: zone, stage
	CycleDuration prometheus.Histogram

	RecordsDecoded  *prometheus.CounterVec // labels: kind
	RecordsSkipped  *prometheus.CounterVec // labels: kind
	Unfilterable    *prometheus.CounterVec // labels: zone
	RecordsRetained *prometheus.GaugeVec   // labels: zone

	DeltasEmitted   *prometheus.CounterVec // labels: zone, delta={added,updated,removed}
	FailureStreak   *prometheus.GaugeVec   // labels: zone
	ZonesConfigured prometheus.Gauge
}

// NewMetrics creates and registers all monitor metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleFailures,
		m.CycleDuration,
		m.RecordsDecoded,
		m.RecordsSkipped,
		m.Unfilterable,
		m.RecordsRetained,
		m.DeltasEmitted,
		m.FailureStreak,
		m.ZonesConfigured,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zone_monitor",
			Name:      "cycles_total",
			Help:      "Refresh cycles by zone and outcome.",
		}, []string{"zone", "outcome"}),
		CycleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zone_monitor",
			Name:      "cycle_failures_total",
			Help:      "Aborted cycles by zone and pipeline stage.",
		}, []string{"zone", "stage"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "zone_monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-decode-filter-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RecordsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zone_monitor",
			Name:      "records_decoded_total",
			Help:      "Feed records decoded, by record kind.",
		}, []string{"kind"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zone_monitor",
			Name:      "records_skipped_total",
			Help:      "Feed records dropped for missing identity or duplication.",
		}, []string{"kind"}),
		Unfilterable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zone_monitor",
			Name:      "records_unfilterable_total",
			Help:      "Records excluded from a zone for missing coordinates.",
		}, []string{"zone"}),
		RecordsRetained: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "zone_monitor",
			Name:      "records_retained",
			Help:      "Records inside the zone radius after the last cycle.",
		}, []string{"zone"}),
		DeltasEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zone_monitor",
			Name:      "deltas_emitted_total",
			Help:      "Reconciliation deltas published, by zone and delta type.",
		}, []string{"zone", "delta"}),
		FailureStreak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "zone_monitor",
			Name:      "failure_streak",
			Help:      "Consecutive failed cycles per zone; 0 after a success.",
		}, []string{"zone"}),
		ZonesConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zone_monitor",
			Name:      "zones_configured",
			Help:      "Number of configured monitoring zones.",
		}),
	}
}
