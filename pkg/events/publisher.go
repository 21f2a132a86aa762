// Package events publishes lifecycle events to the bus. Publishing is
// best-effort: services log failures and never fail the originating request.
package events

import (
	"context"
	"time"

	"studentnest/pkg/kafka"
	"studentnest/pkg/logger"
	"studentnest/pkg/model"

	"github.com/google/uuid"
)

const schemaVersion = "1"

type Publisher interface {
	Publish(ctx context.Context, event model.LifecycleEvent) error
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

// NewKafkaPublisher wraps a producer. The source names the emitting service
// and travels in the message headers.
func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return &kafkaPublisher{producer: producer, source: source}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event model.LifecycleEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	msg := kafka.NewMessage().
		WithKey(event.EntityID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(event.Action).
		WithSource(p.source).
		WithSchemaVersion(schemaVersion).
		Build()

	return p.producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops every event. Used when no brokers are configured and
// in service tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event model.LifecycleEvent) error { return nil }
func (NoopPublisher) Close() error                                                  { return nil }

// LoggingPublisher records the drop so a misconfigured environment is
// visible in the logs.
type LoggingPublisher struct {
	Log *logger.Logger
}

func (p LoggingPublisher) Publish(ctx context.Context, event model.LifecycleEvent) error {
	p.Log.Debug("Event bus disabled, dropping event",
		"action", event.Action,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
	)
	return nil
}

func (p LoggingPublisher) Close() error { return nil }
