// Package metrics exposes publish and lifecycle counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "privatepub"

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	publishTotal    *prometheus.CounterVec
	publishDuration prometheus.Histogram
	eventsTotal     *prometheus.CounterVec
	ticketsTotal    prometheus.Counter
	verifyTotal     *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Publish attempts by outcome.",
		}, []string{"outcome"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Round trip time of publish requests to the broker.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), //nolint:mnd // 1ms to ~16s
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Lifecycle events reported by the broker.",
		}, []string{"event"}),
		ticketsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_issued_total",
			Help:      "Subscription tickets signed.",
		}),
		verifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_verifications_total",
			Help:      "Ticket verifications by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.publishTotal,
		m.publishDuration,
		m.eventsTotal,
		m.ticketsTotal,
		m.verifyTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordPublish counts a publish attempt and observes its duration.
// Attempts that never reached the broker (status 0) are not timed.
func (m *Metrics) RecordPublish(_ string, statusCode int, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.publishTotal.WithLabelValues(outcome).Inc()
	if statusCode != 0 {
		m.publishDuration.Observe(duration.Seconds())
	}
}

// RecordEvent counts a lifecycle event.
func (m *Metrics) RecordEvent(name, _ string) {
	m.eventsTotal.WithLabelValues(name).Inc()
}

// RecordTicket counts a signed subscription ticket.
func (m *Metrics) RecordTicket() {
	m.ticketsTotal.Inc()
}

// RecordVerification counts a ticket verification. result is "valid",
// "invalid" or "expired".
func (m *Metrics) RecordVerification(result string) {
	m.verifyTotal.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
