package kafka_middleware

import (
	"context"
	"time"

	"studentnest/pkg/kafka"
	"studentnest/pkg/logger"
)

// LoggingProducerMiddleware logs every publish with its outcome.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		duration := time.Since(start)
		if err != nil {
			log.Error("Failed to publish message",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.GetEventID(),
				"event_type", msg.GetEventType(),
				"duration_ms", duration.Milliseconds(),
				"error", err,
			)
		} else {
			log.Info("Published message",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.GetEventID(),
				"event_type", msg.GetEventType(),
				"duration_ms", duration.Milliseconds(),
			)
		}

		return err
	}
}

// LoggingConsumerMiddleware logs every consumed message with its outcome.
func LoggingConsumerMiddleware(log *logger.Logger) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		err := next(ctx, msg)

		duration := time.Since(start)
		if err != nil {
			log.Error("Failed to handle message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"event_id", msg.GetEventID(),
				"event_type", msg.GetEventType(),
				"retry_count", msg.GetRetryCount(),
				"duration_ms", duration.Milliseconds(),
				"error", err,
			)
		} else {
			log.Info("Handled message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"event_id", msg.GetEventID(),
				"event_type", msg.GetEventType(),
				"duration_ms", duration.Milliseconds(),
			)
		}

		return err
	}
}
