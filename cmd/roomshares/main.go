package main

import (
	roomsrepo "studentnest/internal/rooms/repository"
	shareshandler "studentnest/internal/roomshares/handler"
	sharesrepo "studentnest/internal/roomshares/repository"
	sharesservice "studentnest/internal/roomshares/service"
	sharesvalidator "studentnest/internal/roomshares/validator"
	"studentnest/pkg/app"
	"studentnest/pkg/config"
	"studentnest/pkg/events"
	"studentnest/pkg/kafka"
	kafka_config "studentnest/pkg/kafka/config"
	kafka_middleware "studentnest/pkg/kafka/middleware"
	"studentnest/pkg/sealer"

	"github.com/joho/godotenv"
)

const ServiceName = "roomshares"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting RoomShares service")
	shareService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(shareshandler.NewShareHandler(shareService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) sharesservice.ShareService {
	shareValidator := sharesvalidator.NewShareValidator(cfg.Log, cfg.MinShareParticipants, cfg.MaxShareParticipants)
	shareRepo := sharesrepo.NewMongoShareRepository(cfg)
	roomRepo := roomsrepo.NewMongoRoomRepository(cfg)

	shareService := sharesservice.NewShareService(
		shareRepo,
		roomRepo,
		shareValidator,
		newPublisher(cfg),
		newSealer(cfg),
		cfg,
	)

	cfg.Log.Info("RoomShare service initialized", "database", cfg.MongoDatabaseName)
	return shareService
}

// newSealer builds the invite-token sealer. Invite links stay disabled when
// no key is configured.
func newSealer(cfg *config.Config) *sealer.Sealer {
	if cfg.InviteTokenKey == "" {
		cfg.Log.Warn("INVITE_TOKEN_KEY not set, invite links disabled")
		return nil
	}
	s, err := sealer.New(cfg.InviteTokenKey)
	if err != nil {
		cfg.Log.Fatal("Invalid invite token key", "error", err)
	}
	return s
}

func newPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Warn("Kafka configuration invalid, events will be logged only", "error", err)
		return events.LoggingPublisher{Log: cfg.Log}
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.RoomShareEventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Warn("Kafka producer unavailable, events will be logged only", "error", err)
		return events.LoggingPublisher{Log: cfg.Log}
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	return events.NewKafkaPublisher(producer, ServiceName)
}
