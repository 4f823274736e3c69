package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one compute channel and its server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CommandsEnqueued   *prometheus.CounterVec
	CommandsDispatched *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	QueueDepth         prometheus.Gauge

	// Server metrics
	MemoryInUseBytes    prometheus.Gauge
	MemoryReservedBytes prometheus.Gauge
	RejectedLaunches    prometheus.Counter
	KernelLaunches      *prometheus.CounterVec
}

// New registers the collectors with reg under namespace.
// Passing prometheus.DefaultRegisterer exposes them on the default handler.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CommandsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_commands_enqueued_total",
			Help:      "The total number of commands enqueued on the compute channel",
		}, []string{"command"}),

		CommandsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_commands_dispatched_total",
			Help:      "The total number of commands dispatched to the server by the worker",
		}, []string{"command"}),

		DispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "channel_dispatch_duration_seconds",
			Help:      "Time spent by the worker inside a server call",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12), // 1µs to ~4s
		}, []string{"command"}),

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_queue_depth",
			Help:      "Number of commands waiting in the channel queue",
		}),

		MemoryInUseBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_memory_in_use_bytes",
			Help:      "Server memory currently in use in bytes",
		}),

		MemoryReservedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_memory_reserved_bytes",
			Help:      "Server memory reserved for reuse in bytes",
		}),

		RejectedLaunches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_rejected_launches_total",
			Help:      "The total number of kernel launches rejected by checked execution",
		}),

		KernelLaunches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_kernel_launches_total",
			Help:      "The total number of kernel launches by kernel",
		}, []string{"kernel"}),
	}
}

func (m *Metrics) Enqueued(command string, depth int) {
	if m == nil {
		return
	}
	m.CommandsEnqueued.WithLabelValues(command).Inc()
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) Dispatched(command string, elapsed time.Duration, depth int) {
	if m == nil {
		return
	}
	m.CommandsDispatched.WithLabelValues(command).Inc()
	m.DispatchDuration.WithLabelValues(command).Observe(elapsed.Seconds())
	m.QueueDepth.Set(float64(depth))
}

// Memory records allocator statistics.
func (m *Metrics) Memory(inUse, reserved uint64) {
	if m == nil {
		return
	}
	m.MemoryInUseBytes.Set(float64(inUse))
	m.MemoryReservedBytes.Set(float64(reserved))
}

func (m *Metrics) Launched(kernel string) {
	if m == nil {
		return
	}
	m.KernelLaunches.WithLabelValues(kernel).Inc()
}

func (m *Metrics) Rejected() {
	if m == nil {
		return
	}
	m.RejectedLaunches.Inc()
}
