package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HandlerPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statebus_handler_panics_total",
		Help: "Total number of handler panics recovered by an executor",
	}, []string{"executor"})

	ExecutorRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statebus_executor_rejected_total",
		Help: "Total number of tasks submitted to a stopped executor",
	}, []string{"executor"})

	ExecutorBacklog = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statebus_executor_backlog",
		Help: "Number of tasks waiting in an executor queue",
	}, []string{"executor"})
)

// IncHandlerPanic records a recovered handler panic.
func IncHandlerPanic(executor string) {
	HandlerPanicsTotal.WithLabelValues(label(executor)).Inc()
}

// IncExecutorRejected records a task refused by a stopped executor.
func IncExecutorRejected(executor string) {
	ExecutorRejectedTotal.WithLabelValues(label(executor)).Inc()
}

// SetExecutorBacklog records the current backlog length of a queue.
func SetExecutorBacklog(executor string, n int) {
	ExecutorBacklog.WithLabelValues(label(executor)).Set(float64(n))
}
