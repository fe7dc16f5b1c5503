package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for pipa components.
type Registry struct {
	// Buffer Metrics
	BufferOccupancy          *prometheus.GaugeVec
	BufferCapacity           *prometheus.GaugeVec
	BufferConsumers          *prometheus.GaugeVec
	BufferProducers          *prometheus.GaugeVec
	BufferAverageUtilization *prometheus.GaugeVec
	BufferPuts               *prometheus.CounterVec
	BufferRejectedPuts       *prometheus.CounterVec
	BufferSentinels          *prometheus.CounterVec

	// Stage and Cancellation Metrics
	Instances      *prometheus.GaugeVec
	StopsRequired  prometheus.Gauge
	StopsReceived  prometheus.Gauge
	Cancelled      prometheus.Gauge
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	FaultedTotal   *prometheus.CounterVec

	// Worker Pool Metrics
	WorkerPoolSize        *prometheus.GaugeVec
	WorkerPoolActive      *prometheus.GaugeVec
	TasksExecuted         *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec

	// Scheduler Metrics
	ScheduledRuns *prometheus.CounterVec
	SkippedRuns   *prometheus.CounterVec
}

// DefaultRegistry is the registry used by components that are not given
// one explicitly. It is registered with prometheus.DefaultRegisterer.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithNamespace(reg, DefaultNamespace)
}

// NewRegistryWithNamespace is NewRegistry with a custom metric namespace.
func NewRegistryWithNamespace(reg prometheus.Registerer, namespace string) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Buffer Metrics
		BufferOccupancy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "occupancy",
				Help:      "Number of records currently queued in the buffer",
			},
			[]string{"buffer"},
		),

		BufferCapacity: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "capacity",
				Help:      "Fixed capacity of the buffer",
			},
			[]string{"buffer"},
		),

		BufferConsumers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "consumers",
				Help:      "Number of worker instances reading from the buffer",
			},
			[]string{"buffer"},
		),

		BufferProducers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "producers",
				Help:      "Number of worker instances writing to the buffer",
			},
			[]string{"buffer"},
		),

		BufferAverageUtilization: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "average_utilization_ratio",
				Help:      "Running average of buffer utilization over the run",
			},
			[]string{"buffer"},
		),

		BufferPuts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "puts_total",
				Help:      "Total number of records accepted by the buffer",
			},
			[]string{"buffer"},
		),

		BufferRejectedPuts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "rejected_puts_total",
				Help:      "Total number of puts refused because the buffer was full",
			},
			[]string{"buffer"},
		),

		BufferSentinels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "sentinels_injected_total",
				Help:      "Total number of cancellation sentinels injected into the buffer",
			},
			[]string{"buffer"},
		),

		// Stage and Cancellation Metrics
		Instances: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "instances",
				Help:      "Number of worker instances per stage and status",
			},
			[]string{"stage", "status"},
		),

		StopsRequired: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cancellation",
				Name:      "stops_required",
				Help:      "Number of stop requests required to cancel the run",
			},
		),

		StopsReceived: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cancellation",
				Name:      "stops_received",
				Help:      "Number of stop requests received so far",
			},
		),

		Cancelled: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cancellation",
				Name:      "cancelled",
				Help:      "1 once the current run has been cancelled",
			},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "finished_total",
				Help:      "Total number of finished runs by cause",
			},
			[]string{"cause"},
		),

		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Wall time of finished runs",
				Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
			},
		),

		FaultedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "faulted_instances_total",
				Help:      "Total number of worker instances that ended faulted",
			},
			[]string{"stage"},
		),

		// Worker Pool Metrics
		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of active workers",
			},
			[]string{"pool_name"},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks executed",
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that failed",
			},
			[]string{"pool_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		// Scheduler Metrics
		ScheduledRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "runs_total",
				Help:      "Total number of scheduled runs by outcome",
			},
			[]string{"scheduler_name", "outcome"},
		),

		SkippedRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "skipped_total",
				Help:      "Total number of scheduled runs skipped because the previous run was still active",
			},
			[]string{"scheduler_name"},
		),
	}
}
