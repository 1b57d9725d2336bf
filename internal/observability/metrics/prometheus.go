// Package metrics provides Prometheus metrics for the AYUSH API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	PatientsCreated       prometheus.Counter
	ConditionsCreated     prometheus.Counter
	BundlesGenerated      *prometheus.CounterVec
	ValidationsRun        *prometheus.CounterVec
	HTTPRequests          *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
	IdempotentReplays     prometheus.Counter
	EventsPublished       *prometheus.CounterVec
	EventsFailed          prometheus.Counter
	EventsDropped         prometheus.Counter
	KafkaMessagesConsumed prometheus.Counter
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PatientsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ayush_patients_created_total",
			Help: "Total patients registered",
		}),
		ConditionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ayush_conditions_created_total",
			Help: "Total conditions recorded",
		}),
		BundlesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ayush_fhir_bundles_generated_total",
			Help: "FHIR bundles generated, by source (stored or adhoc)",
		}, []string{"source"}),
		ValidationsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ayush_fhir_validations_total",
			Help: "FHIR validations, by result",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route"}),
		IdempotentReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_idempotent_replays_total",
			Help: "Responses replayed for a repeated Idempotency-Key",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinical_events_published_total",
			Help: "Clinical events published, by topic",
		}, []string{"topic"}),
		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinical_events_failed_total",
			Help: "Clinical events that exhausted their retries",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinical_events_dropped_total",
			Help: "Clinical events dropped because the dispatch queue was full or closed",
		}),
		KafkaMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.PatientsCreated,
		m.ConditionsCreated,
		m.BundlesGenerated,
		m.ValidationsRun,
		m.HTTPRequests,
		m.HTTPDuration,
		m.IdempotentReplays,
		m.EventsPublished,
		m.EventsFailed,
		m.EventsDropped,
		m.KafkaMessagesConsumed,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler for g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
