// Package metrics exposes prometheus collectors for bus and executor activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statebus_published_total",
		Help: "Total number of event publishes and state sets accepted by a bus",
	}, []string{"bus", "kind"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statebus_deliveries_total",
		Help: "Total number of handler deliveries scheduled by a bus, including state replays",
	}, []string{"bus", "kind"})

	StateSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statebus_state_suppressed_total",
		Help: "Total number of state sets suppressed because the value did not change",
	}, []string{"bus"})

	Subscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statebus_subscriptions",
		Help: "Number of subscriptions currently held in a bus registry",
	}, []string{"bus"})
)

// IncPublished records one publish (kind "event") or set (kind "state").
func IncPublished(bus, kind string) {
	PublishedTotal.WithLabelValues(label(bus), kind).Inc()
}

// AddDeliveries records n scheduled deliveries.
func AddDeliveries(bus, kind string, n int) {
	if n <= 0 {
		return
	}
	DeliveriesTotal.WithLabelValues(label(bus), kind).Add(float64(n))
}

// IncStateSuppressed records a set that carried the already stored value.
func IncStateSuppressed(bus string) {
	StateSuppressedTotal.WithLabelValues(label(bus)).Inc()
}

// SetSubscriptions records the registry size after a mutation pass.
func SetSubscriptions(bus string, n int) {
	Subscriptions.WithLabelValues(label(bus)).Set(float64(n))
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
