package main

import (
	bookingshandler "studentnest/internal/bookings/handler"
	bookingsrepo "studentnest/internal/bookings/repository"
	bookingsservice "studentnest/internal/bookings/service"
	bookingsvalidator "studentnest/internal/bookings/validator"
	roomsrepo "studentnest/internal/rooms/repository"
	"studentnest/pkg/app"
	"studentnest/pkg/config"
	"studentnest/pkg/events"
	"studentnest/pkg/kafka"
	kafka_config "studentnest/pkg/kafka/config"
	kafka_middleware "studentnest/pkg/kafka/middleware"

	"github.com/joho/godotenv"
)

const ServiceName = "bookings"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")
	bookingService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(bookingshandler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) bookingsservice.BookingService {
	bookingValidator := bookingsvalidator.NewBookingValidator(cfg.Log, cfg.MaxDurationMonths)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	roomRepo := roomsrepo.NewMongoRoomRepository(cfg)

	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		roomRepo,
		bookingValidator,
		newPublisher(cfg),
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

// newPublisher wires the Kafka lifecycle event publisher. Without a reachable
// broker configuration the service degrades to logging events locally;
// publishing is best-effort either way.
func newPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Warn("Kafka configuration invalid, events will be logged only", "error", err)
		return events.LoggingPublisher{Log: cfg.Log}
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Warn("Kafka producer unavailable, events will be logged only", "error", err)
		return events.LoggingPublisher{Log: cfg.Log}
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	return events.NewKafkaPublisher(producer, ServiceName)
}
