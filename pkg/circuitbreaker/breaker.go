// Package circuitbreaker guards calls to downstream brokers.
// Wraps sony/gobreaker with OpenTelemetry spans and counters.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State represents the circuit breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Value is the numeric form of s used by gauges (0=closed, 1=open, 2=half-open).
func (s State) Value() float64 {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// ErrOpen is returned when the breaker rejects a call without running it.
var ErrOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration
type Config struct {
	Name string
	// MaxRequests is max requests allowed in half-open state
	MaxRequests uint32
	// Interval is the cyclic period for clearing counts in closed state
	Interval time.Duration
	// Timeout is how long to wait before transitioning from open to half-open
	Timeout time.Duration
	// FailureThreshold is the consecutive failures that open the breaker
	// before MinRequests have been seen
	FailureThreshold uint32
	// FailureRatio opens the breaker once MinRequests have been seen
	FailureRatio float64
	MinRequests  uint32
	// OnStateChange is called after every transition
	OnStateChange func(name string, to State)
}

// DefaultConfig returns defaults suitable for event publishing
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 5,
		FailureRatio:     0.6,
		MinRequests:      10,
	}
}

// CircuitBreaker wraps gobreaker with observability
type CircuitBreaker struct {
	cb       *gobreaker.CircuitBreaker
	name     string
	logger   *zap.Logger
	tracer   trace.Tracer
	onChange func(name string, to State)

	requests metric.Int64Counter
	failures metric.Int64Counter
	rejected metric.Int64Counter

	mu    sync.RWMutex
	state State
}

// New creates a new circuit breaker
func New(cfg Config, logger *zap.Logger) (*CircuitBreaker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &CircuitBreaker{
		name:     cfg.Name,
		logger:   logger,
		tracer:   otel.Tracer("circuit-breaker"),
		onChange: cfg.OnStateChange,
		state:    StateClosed,
	}

	meter := otel.Meter("circuit-breaker")
	var err error
	if c.requests, err = meter.Int64Counter("circuit_breaker_requests_total",
		metric.WithDescription("Total calls through the circuit breaker")); err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	if c.failures, err = meter.Int64Counter("circuit_breaker_failures_total",
		metric.WithDescription("Calls that ran and failed")); err != nil {
		return nil, fmt.Errorf("create failure counter: %w", err)
	}
	if c.rejected, err = meter.Int64Counter("circuit_breaker_rejected_total",
		metric.WithDescription("Calls rejected while the circuit was open")); err != nil {
		return nil, fmt.Errorf("create rejected counter: %w", err)
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return counts.ConsecutiveFailures >= cfg.FailureThreshold
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			c.transition(mapState(from), mapState(to))
		},
	})

	return c, nil
}

// Execute runs fn through the breaker. A rejected call returns ErrOpen.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "circuit_breaker.execute",
		trace.WithAttributes(
			attribute.String("breaker.name", c.name),
			attribute.String("breaker.state", string(c.State())),
		))
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("name", c.name))
	c.requests.Add(ctx, 1, attrs)

	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.rejected.Add(ctx, 1, attrs)
		span.SetAttributes(attribute.Bool("breaker.rejected", true))
		span.SetStatus(codes.Error, "circuit open")
		return fmt.Errorf("%s: %w", c.name, ErrOpen)
	}

	c.failures.Add(ctx, 1, attrs)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// State returns the current circuit breaker state
func (c *CircuitBreaker) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Name returns the breaker name.
func (c *CircuitBreaker) Name() string {
	return c.name
}

// Counts returns the current counts from the circuit breaker
func (c *CircuitBreaker) Counts() gobreaker.Counts {
	return c.cb.Counts()
}

func (c *CircuitBreaker) transition(from, to State) {
	c.mu.Lock()
	c.state = to
	c.mu.Unlock()

	c.logger.Warn("circuit breaker state changed",
		zap.String("breaker", c.name),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	if c.onChange != nil {
		c.onChange(c.name, to)
	}
}

func mapState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
