package main

import (
	"context"
	"time"

	"roomsvc/internal/rooms/handler"
	"roomsvc/internal/rooms/repository"
	"roomsvc/internal/rooms/service"
	"roomsvc/internal/rooms/validator"
	"roomsvc/pkg/app"
	"roomsvc/pkg/config"
	"roomsvc/pkg/kafka"
	kafka_config "roomsvc/pkg/kafka/config"
	kafka_middleware "roomsvc/pkg/kafka/middleware"
)

const ServiceName = "rooms"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Rooms service")
	bookingService, producer := initServices(cfg)
	defer producer.Close()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.BookingService, *kafka.Producer) {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	roomRepo := repository.NewMongoRoomRepository(cfg)
	enrollmentRepo := repository.NewMongoEnrollmentRepository(cfg)
	ticketRepo := repository.NewMongoTicketRepository(cfg)
	lockRepo := repository.NewMongoRoomLockRepository(cfg)

	ensureIndexes(cfg, bookingRepo, lockRepo)

	producer := initProducer(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		roomRepo,
		enrollmentRepo,
		ticketRepo,
		lockRepo,
		bookingValidator,
		producer,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService, producer
}

func ensureIndexes(cfg *config.Config, bookingRepo repository.BookingRepository, lockRepo repository.RoomLockRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := bookingRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to create booking indexes", "error", err)
	}
	if err := lockRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to create room lock indexes", "error", err)
	}

	cfg.Log.Info("Database indexes ensured")
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg := kafka_config.Load()

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Kafka producer initialized",
		"topic", cfg.BookingEventsTopic,
		"dlq_topic", cfg.BookingEventsDLQTopic,
	)
	return producer
}
