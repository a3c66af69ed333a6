package workflow

import "github.com/prometheus/client_golang/prometheus"

var (
	taskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protectgrid",
			Subsystem: "workflow",
			Name:      "tasks_total",
			Help:      "number of finished tasks, by final status",
		}, []string{"status"})
	taskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "protectgrid",
			Subsystem: "workflow",
			Name:      "task_duration_seconds",
			Help:      "task execution time",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		})
)

// InitMetrics registers all metrics in this package.
func InitMetrics(registry prometheus.Registerer) {
	registry.MustRegister(taskCounter)
	registry.MustRegister(taskDuration)
}
