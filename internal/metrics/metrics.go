// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Counters updated by the service, repository and rate limiter packages.
var (
	EventsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "rsvp_events_created_total", Help: "Total events created"},
	)
	EventsUpdated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "rsvp_events_updated_total", Help: "Total events updated"},
	)
	EventsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "rsvp_events_deleted_total", Help: "Total events deleted"},
	)
	RegistrationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rsvp_registrations_created_total", Help: "Total registrations by attendance answer"},
		[]string{"attending"},
	)
	RateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rsvp_rate_limit_decisions_total", Help: "Rate limiter decisions by outcome"},
		[]string{"outcome"},
	)
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rsvp_store_errors_total", Help: "Key-value store failures by operation"},
		[]string{"op"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		EventsCreated,
		EventsUpdated,
		EventsDeleted,
		RegistrationsCreated,
		RateLimitDecisions,
		StoreErrors,
	)
}
