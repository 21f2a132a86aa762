package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	kafka_config "studentnest/pkg/kafka/config"
	"studentnest/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageHandler processes a single consumed message.
type MessageHandler func(ctx context.Context, msg Message) error

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

// Consumer wraps a kafka-go reader with retry classification and a DLQ.
type Consumer struct {
	reader     *kafka.Reader
	dlqWriter  *kafka.Writer
	topic      string
	groupID    string
	dlqTopic   string
	maxRetries int
	handler    MessageHandler
	middleware []ConsumerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
}

func NewConsumer(cfg *kafka_config.Config, topic, groupID, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       cfg.ConsumerMinBytes,
		MaxBytes:       cfg.ConsumerMaxBytes,
		MaxWait:        cfg.ConsumerMaxWait,
		CommitInterval: cfg.ConsumerCommitInterval,
		StartOffset:    cfg.ConsumerStartOffset,
		Logger:         kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:    kafka.LoggerFunc(func(msg string, args ...any) { log.Error(fmt.Sprintf(msg, args...)) }),
	})

	consumer := &Consumer{
		reader:     reader,
		topic:      topic,
		groupID:    groupID,
		dlqTopic:   dlqTopic,
		maxRetries: cfg.ConsumerMaxRetries,
		handler:    handler,
		middleware: make([]ConsumerMiddleware, 0),
		log:        log,
	}

	if dlqTopic != "" {
		consumer.dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			MaxAttempts:  3,
			Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
			ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...any) { log.Error(fmt.Sprintf(msg, args...)) }),
		}
	}

	return consumer, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			kafkaMsg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				c.log.Error("Failed to fetch message", "topic", c.topic, "error", err)
				time.Sleep(1 * time.Second) // Backoff
				continue
			}

			msg := c.convertMessage(kafkaMsg)

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error("Failed to process message",
					"topic", c.topic,
					"offset", msg.Offset,
					"event_id", msg.GetEventID(),
					"error", err,
				)
				// Error already routed to retry/DLQ; move on.
			}

			if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil {
				c.log.Error("Failed to commit offset", "topic", c.topic, "error", err)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg Message) error {
	handler := c.handler
	c.mu.RLock()
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}
	c.mu.RUnlock()

	err := handler(ctx, msg)
	if err == nil {
		return nil
	}

	retries := msg.GetRetryCount()
	if ShouldRetry(err, retries, c.maxRetries) {
		return c.requeue(ctx, msg, retries+1)
	}

	if c.dlqWriter != nil {
		return c.sendToDLQ(ctx, msg, err)
	}
	return err
}

// requeue writes the message back onto its own topic with an incremented
// retry counter, preserving at-least-once semantics without blocking the
// partition.
func (c *Consumer) requeue(ctx context.Context, msg Message, retries int) error {
	writer := &kafka.Writer{
		Addr:        kafka.TCP(c.reader.Config().Brokers...),
		Topic:       c.topic,
		Balancer:    &kafka.Hash{},
		MaxAttempts: 3,
		Logger:      kafka.LoggerFunc(func(m string, args ...any) {}),
	}
	defer writer.Close()

	retryMsg := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
	}
	for k, v := range msg.Headers {
		if k == HeaderRetryCount {
			continue
		}
		retryMsg.Headers = append(retryMsg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	retryMsg.Headers = append(retryMsg.Headers, kafka.Header{
		Key:   HeaderRetryCount,
		Value: []byte(strconv.Itoa(retries)),
	})

	return writer.WriteMessages(ctx, retryMsg)
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, cause error) error {
	dlqMsg := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
	}
	for k, v := range msg.Headers {
		dlqMsg.Headers = append(dlqMsg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	dlqMsg.Headers = append(dlqMsg.Headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(c.topic)},
		kafka.Header{Key: HeaderFailureReason, Value: []byte(cause.Error())},
	)

	return c.dlqWriter.WriteMessages(ctx, dlqMsg)
}

func (c *Consumer) convertMessage(kafkaMsg kafka.Message) Message {
	msg := Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}
	for _, h := range kafkaMsg.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if err := c.reader.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.dlqWriter != nil {
		if err := c.dlqWriter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close consumer: %v", errs)
	}
	return nil
}
