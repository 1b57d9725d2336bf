package events

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ayushhealth/go-ayush/internal/domain/clinical"
	"github.com/ayushhealth/go-ayush/internal/infrastructure/redpanda"
	"github.com/ayushhealth/go-ayush/internal/observability/metrics"
)

// Decode parses a published event
func Decode(value []byte) (*clinical.Event, error) {
	var e clinical.Event
	if err := json.Unmarshal(value, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if e.ID == "" || e.EventType == "" {
		return nil, fmt.Errorf("decode event: missing id or eventType")
	}
	return &e, nil
}

// AuditHandler returns a consumer handler that writes one audit line per
// event. Undecodable messages are logged and skipped.
func AuditHandler(m *metrics.Metrics, logger *zap.Logger) redpanda.MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, msg *redpanda.ConsumedMessage) error {
		if m != nil {
			m.KafkaMessagesConsumed.Inc()
		}

		e, err := Decode(msg.Value)
		if err != nil {
			logger.Warn("skipping undecodable message",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			return nil
		}

		logger.Info("audit",
			zap.String("event_id", e.ID),
			zap.String("event_type", string(e.EventType)),
			zap.String("aggregate_type", e.AggregateType),
			zap.String("aggregate_id", e.AggregateID),
			zap.String("correlation_id", e.CorrelationID),
			zap.Time("occurred_at", e.Timestamp),
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("data", e.EventData))
		return nil
	}
}
