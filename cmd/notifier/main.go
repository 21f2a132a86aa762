package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"studentnest/internal/notifier"
	"studentnest/pkg/config"
	"studentnest/pkg/kafka"
	kafka_config "studentnest/pkg/kafka/config"
	kafka_middleware "studentnest/pkg/kafka/middleware"

	"github.com/joho/godotenv"
)

const ServiceName = "notifier"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Notifier service")

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	n := notifier.NewNotifier(notifier.LogEmailSender{Log: cfg.Log}, cfg.Log)

	consumers := make([]*kafka.Consumer, 0, 2)
	for _, topic := range []string{cfg.BookingEventsTopic, cfg.RoomShareEventsTopic} {
		consumer, err := kafka.NewConsumer(kafkaCfg, topic, cfg.NotifierGroupID, cfg.EventsDLQTopic, n.Handle, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create consumer", "topic", topic, "error", err)
		}
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumers = append(consumers, consumer)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, consumer := range consumers {
		wg.Add(1)
		go func(c *kafka.Consumer) {
			defer wg.Done()
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				cfg.Log.Error("Consumer stopped with error", "error", err)
			}
		}(consumer)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	cfg.Log.Info("Shutdown signal received", "signal", sig)

	cancel()
	for _, consumer := range consumers {
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close consumer", "error", err)
		}
	}
	wg.Wait()
	cfg.Log.Info("Notifier stopped gracefully")
}
