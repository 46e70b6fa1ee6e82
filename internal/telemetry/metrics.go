package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon's prometheus collectors.
type Metrics struct {
	// registry backs Handler and keeps collectors test-isolated.
	registry *prometheus.Registry

	// AlarmsCreated counts alarms accepted through the API.
	AlarmsCreated prometheus.Counter
	// AlarmsFired counts successful deliveries (fired_at written).
	AlarmsFired prometheus.Counter
	// DeliveryAttempts counts every notifier call, including retries.
	DeliveryAttempts prometheus.Counter
	// DeliveryFailures counts activations that exhausted their retry budget.
	DeliveryFailures prometheus.Counter
}

// NewMetrics creates and registers the daemon collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		AlarmsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarm_scheduler_alarms_created_total",
			Help: "Number of alarms accepted through the API.",
		}),
		AlarmsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarm_scheduler_alarms_fired_total",
			Help: "Number of alarms that delivered their notification.",
		}),
		DeliveryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarm_scheduler_delivery_attempts_total",
			Help: "Number of notifier calls, including retries.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alarm_scheduler_delivery_failures_total",
			Help: "Number of activations that exhausted the delivery retry budget.",
		}),
	}

	registry.MustRegister(m.AlarmsCreated, m.AlarmsFired, m.DeliveryAttempts, m.DeliveryFailures)

	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
