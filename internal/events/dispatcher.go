// Package events publishes clinical domain events to Redpanda off the request
// path and decodes them again on the audit side.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	"github.com/ayushhealth/go-ayush/internal/infrastructure/redpanda"
	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
	"github.com/ayushhealth/go-ayush/pkg/circuitbreaker"
	"github.com/ayushhealth/go-ayush/pkg/workerpool"
)

// Header keys set on every published record
const (
	HeaderEventType     = "eventType"
	HeaderAggregateType = "aggregateType"
	HeaderCorrelationID = "correlationId"
	HeaderFailureReason = "failureReason"
)

// Publisher sends one record to a topic. *redpanda.Producer satisfies it.
type Publisher interface {
	ProduceMessage(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// Config holds dispatcher configuration
type Config struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
	// DeadLetterTimeout bounds the dead-letter produce
	DeadLetterTimeout time.Duration
	Breaker           circuitbreaker.Config
}

// DefaultConfig returns defaults for event dispatch
func DefaultConfig() Config {
	pool := workerpool.DefaultConfig()
	return Config{
		Workers:           pool.Workers,
		QueueSize:         pool.QueueSize,
		MaxRetries:        pool.MaxRetries,
		RetryDelay:        pool.RetryDelay,
		DeadLetterTimeout: 5 * time.Second,
		Breaker:           circuitbreaker.DefaultConfig("event-publisher"),
	}
}

// Dispatcher is a clinical.EventSink that queues events on a worker pool and
// publishes them through a circuit breaker.
type Dispatcher struct {
	config    Config
	publisher Publisher
	pool      *workerpool.Pool
	breaker   *circuitbreaker.CircuitBreaker
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
}

var _ clinical.EventSink = (*Dispatcher)(nil)

type envelope struct {
	event *clinical.Event
	topic string
	value []byte
}

// NewDispatcher creates a dispatcher. Call Start before emitting.
func NewDispatcher(cfg Config, publisher Publisher, m *metrics.Metrics, logger *zap.Logger) (*Dispatcher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DeadLetterTimeout <= 0 {
		cfg.DeadLetterTimeout = DefaultConfig().DeadLetterTimeout
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultConfig().Breaker
	}

	d := &Dispatcher{
		config:    cfg,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("event-dispatcher"),
	}

	cfg.Breaker.OnStateChange = func(name string, to circuitbreaker.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(to.Value())
	}
	breaker, err := circuitbreaker.New(cfg.Breaker, logger)
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}
	m.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(breaker.State().Value())
	d.breaker = breaker

	pool, err := workerpool.New(workerpool.Config{
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}, d.publish, d.deadLetter, logger)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	d.pool = pool

	return d, nil
}

// Start launches the publishing workers
func (d *Dispatcher) Start() {
	d.pool.Start()
}

// Stop drains queued events
func (d *Dispatcher) Stop(ctx context.Context) error {
	return d.pool.Stop(ctx)
}

// Emit queues e for publication. It never blocks; a full queue drops the event.
func (d *Dispatcher) Emit(ctx context.Context, e *clinical.Event) {
	value, err := json.Marshal(e)
	if err != nil {
		d.logger.Error("failed to encode event", zap.String("event_id", e.ID), zap.Error(err))
		d.metrics.EventsDropped.Inc()
		return
	}

	// keep the trace but not the request deadline
	taskCtx := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx))

	err = d.pool.Submit(&workerpool.Task{
		ID:      e.ID,
		Payload: &envelope{event: e, topic: TopicFor(e), value: value},
		Context: taskCtx,
	})
	if err != nil {
		d.metrics.EventsDropped.Inc()
		d.logger.Warn("event dropped",
			zap.String("event_id", e.ID),
			zap.String("event_type", string(e.EventType)),
			zap.Error(err))
	}
}

// Stats returns the worker pool statistics
func (d *Dispatcher) Stats() workerpool.Stats {
	return d.pool.Stats()
}

// BreakerState returns the publisher circuit state
func (d *Dispatcher) BreakerState() circuitbreaker.State {
	return d.breaker.State()
}

func (d *Dispatcher) publish(ctx context.Context, task *workerpool.Task) error {
	env := task.Payload.(*envelope)

	ctx, span := d.tracer.Start(ctx, "events.publish",
		trace.WithAttributes(
			attribute.String("event.id", env.event.ID),
			attribute.String("event.type", string(env.event.EventType)),
			attribute.String("messaging.destination.name", env.topic),
		))
	defer span.End()

	err := d.breaker.Execute(ctx, func(ctx context.Context) error {
		return d.publisher.ProduceMessage(ctx, env.topic, env.event.AggregateID, env.value, headersFor(env.event))
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	d.metrics.EventsPublished.WithLabelValues(env.topic).Inc()
	return nil
}

func (d *Dispatcher) deadLetter(ctx context.Context, task *workerpool.Task, cause error) {
	env := task.Payload.(*envelope)
	d.metrics.EventsFailed.Inc()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.DeadLetterTimeout)
	defer cancel()

	headers := headersFor(env.event)
	headers[HeaderFailureReason] = cause.Error()

	if err := d.publisher.ProduceMessage(ctx, redpanda.TopicDeadLetter, env.event.AggregateID, env.value, headers); err != nil {
		d.logger.Error("dead letter",
			zap.String("event_id", env.event.ID),
			zap.String("event_type", string(env.event.EventType)),
			zap.String("topic", env.topic),
			zap.ByteString("event", env.value),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	d.logger.Warn("event sent to dead letter topic",
		zap.String("event_id", env.event.ID),
		zap.Error(cause))
}

// TopicFor returns the topic an event is published to
func TopicFor(e *clinical.Event) string {
	switch e.AggregateType {
	case clinical.AggregatePatient:
		return redpanda.TopicPatientEvents
	case clinical.AggregateCondition:
		return redpanda.TopicConditionEvents
	default:
		return redpanda.TopicDeadLetter
	}
}

func headersFor(e *clinical.Event) map[string]string {
	h := map[string]string{
		HeaderEventType:     string(e.EventType),
		HeaderAggregateType: e.AggregateType,
	}
	if e.CorrelationID != "" {
		h[HeaderCorrelationID] = e.CorrelationID
	}
	return h
}
