// Package metrics provides Prometheus instrumentation for the task
// execution engine.
//
// A Collector is instance-based: callers register it against their own
// Registerer, so embedding the engine in a larger program never fights over
// global metric names. All recording methods are nil-safe, letting the
// engine call them unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records engine-level task metrics.
type Collector struct {
	tasksStarted prometheus.Counter
	tasksRunning prometheus.Gauge
	tasksStopped *prometheus.CounterVec
	taskDuration prometheus.Histogram

	outputLines *prometheus.CounterVec
	readyTotal  prometheus.Counter
	errorsTotal *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
// Pass prometheus.DefaultRegisterer to use the process-wide registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcrm_task_started_total",
			Help: "Total tasks whose process was successfully spawned",
		}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tcrm_task_running",
			Help: "Tasks currently running (spawned, not yet stopped)",
		}),
		tasksStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tcrm_task_stopped_total",
			Help: "Total terminal events by stop reason",
		}, []string{"reason"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tcrm_task_duration_seconds",
			Help:    "Wall-clock task duration from spawn to terminal event",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		outputLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tcrm_task_output_lines_total",
			Help: "Total output lines emitted, by stream",
		}, []string{"source"}),
		readyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcrm_task_ready_total",
			Help: "Total ready-indicator matches",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tcrm_task_errors_total",
			Help: "Total error events emitted, by error kind",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.tasksStarted,
		c.tasksRunning,
		c.tasksStopped,
		c.taskDuration,
		c.outputLines,
		c.readyTotal,
		c.errorsTotal,
	)
	return c
}

// TaskStarted records a successful process spawn.
func (c *Collector) TaskStarted() {
	if c == nil {
		return
	}
	c.tasksStarted.Inc()
	c.tasksRunning.Inc()
}

// TaskStopped records a terminal event together with the task's duration.
// The reason label is the StopReason kind plus, for terminations, the
// terminate cause ("terminated:timeout", "terminated:user_requested").
func (c *Collector) TaskStopped(reason string, duration time.Duration) {
	if c == nil {
		return
	}
	c.tasksRunning.Dec()
	c.tasksStopped.WithLabelValues(reason).Inc()
	c.taskDuration.Observe(duration.Seconds())
}

// OutputLine records one emitted output line from the given stream.
func (c *Collector) OutputLine(source string) {
	if c == nil {
		return
	}
	c.outputLines.WithLabelValues(source).Inc()
}

// Ready records a ready-indicator match.
func (c *Collector) Ready() {
	if c == nil {
		return
	}
	c.readyTotal.Inc()
}

// Error records one error event of the given kind.
func (c *Collector) Error(kind string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(kind).Inc()
}
