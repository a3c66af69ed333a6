package checkpoint

import "github.com/prometheus/client_golang/prometheus"

var (
	transitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protectgrid",
			Subsystem: "checkpoint",
			Name:      "transitions_total",
			Help:      "number of checkpoint status transitions, by target status",
		}, []string{"status"})
	bankRetryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protectgrid",
			Subsystem: "checkpoint",
			Name:      "bank_retries_total",
			Help:      "number of retried bank operations after a transient failure",
		}, []string{"op"})
)

// InitMetrics registers all metrics in this package.
func InitMetrics(registry prometheus.Registerer) {
	registry.MustRegister(transitionCounter)
	registry.MustRegister(bankRetryCounter)
}
