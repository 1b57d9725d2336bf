package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the log instead of a broker. It is used when
// no Kafka brokers are configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// ProduceMessage logs the record and always succeeds
func (p *LogPublisher) ProduceMessage(_ context.Context, topic, key string, value []byte, headers map[string]string) error {
	p.logger.Info("clinical event",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Any("headers", headers),
		zap.ByteString("event", value))
	return nil
}
