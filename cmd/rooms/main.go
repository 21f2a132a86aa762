package main

import (
	roomshandler "studentnest/internal/rooms/handler"
	roomsrepo "studentnest/internal/rooms/repository"
	roomsservice "studentnest/internal/rooms/service"
	roomsvalidator "studentnest/internal/rooms/validator"
	"studentnest/pkg/app"
	"studentnest/pkg/config"

	"github.com/joho/godotenv"
)

const ServiceName = "rooms"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Rooms service")
	roomService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(roomshandler.NewRoomHandler(roomService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) roomsservice.RoomService {
	roomValidator := roomsvalidator.NewRoomValidator(cfg.Log)
	roomRepo := roomsrepo.NewMongoRoomRepository(cfg)
	roomService := roomsservice.NewRoomService(roomRepo, roomValidator, cfg)

	cfg.Log.Info("Room service initialized", "database", cfg.MongoDatabaseName)
	return roomService
}
