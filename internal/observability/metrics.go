package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// collection pipeline.
type Metrics struct {
	TaskRuns     *prometheus.CounterVec // labels: task, outcome={ok,partial}
	TaskDuration *prometheus.HistogramVec

	// Provider fetch metrics.
	ProviderRequests *prometheus.CounterVec // labels: endpoint, outcome={success,empty,error}
	PagesFetched     prometheus.Counter

	// Persistence metrics.
	POIsCreated       prometheus.Counter
	POIsDuplicate     prometheus.Counter
	RecordsDropped    *prometheus.CounterVec // labels: kind
	AreasSkipped      prometheus.Counter
	SnapshotsAppended *prometheus.CounterVec // labels: kind={traffic,weather}

	// Scheduler metrics.
	TicksSkipped *prometheus.CounterVec // labels: lane
	SchedulerUp  prometheus.Gauge
}

// TaskTimer returns a timer that records into TaskDuration for the given
// task when ObserveDuration is called.
func (m *Metrics) TaskTimer(task string) *prometheus.Timer {
	return prometheus.NewTimer(m.TaskDuration.WithLabelValues(task))
}

// NewMetrics creates and registers all collector metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TaskRuns,
		m.TaskDuration,
		m.ProviderRequests,
		m.PagesFetched,
		m.POIsCreated,
		m.POIsDuplicate,
		m.RecordsDropped,
		m.AreasSkipped,
		m.SnapshotsAppended,
		m.TicksSkipped,
		m.SchedulerUp,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// to avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TaskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "task_runs_total",
			Help:      "Collection task runs by task name and outcome.",
		}, []string{"task", "outcome"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jiaotong",
			Name:      "task_duration_seconds",
			Help:      "Duration of one complete collection task run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"task"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "provider_requests_total",
			Help:      "AMap API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "pages_fetched_total",
			Help:      "Total non-empty POI search pages fetched.",
		}),
		POIsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "pois_created_total",
			Help:      "POIs inserted for the first time.",
		}),
		POIsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "pois_duplicate_total",
			Help:      "POIs already present and left untouched.",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "records_dropped_total",
			Help:      "Records dropped during normalization by data kind.",
		}, []string{"kind"}),
		AreasSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "areas_skipped_total",
			Help:      "Target areas skipped because the provider had no traffic data.",
		}),
		SnapshotsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "snapshots_appended_total",
			Help:      "Append-only snapshots written by data kind.",
		}, []string{"kind"}),
		TicksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jiaotong",
			Name:      "ticks_skipped_total",
			Help:      "Cadence ticks skipped because the previous run was still active.",
		}, []string{"lane"}),
		SchedulerUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jiaotong",
			Name:      "scheduler_up",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
	}
}
