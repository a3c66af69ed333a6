package manager

import "github.com/prometheus/client_golang/prometheus"

var operationCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "protectgrid",
		Subsystem: "manager",
		Name:      "operations_total",
		Help:      "number of protection operations, by operation and result",
	}, []string{"operation", "result"})

// InitMetrics registers all metrics in this package.
func InitMetrics(registry prometheus.Registerer) {
	registry.MustRegister(operationCounter)
}

func observe(op string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	operationCounter.WithLabelValues(op, result).Inc()
}
