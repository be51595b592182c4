package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyroom/internal/cache"
	"studyroom/internal/config"
	"studyroom/internal/db"
	"studyroom/internal/events"
	"studyroom/internal/logger"
	"studyroom/internal/obs"
	"studyroom/internal/reservation"
	"studyroom/internal/room"
	"studyroom/internal/server"
)

func main() {
	logger.Init()
	logger.Info("Starting study room reservation API")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Failed to load time zone: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatalf("Failed to init tracer: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := cache.NewClient(cfg.RedisAddr)
	defer rdb.Close()
	activeCache := cache.New(rdb, cfg.CacheTTL)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventExchange)
		if err != nil {
			logger.Fatalf("Failed to connect to message broker: %v", err)
		}
		defer p.Close()
		publisher = p
		logger.Info("Event publisher connected", "exchange", cfg.EventExchange)
	} else {
		logger.Warn("AMQP_URL not set, change events are not published")
	}

	roomRepo := room.NewRepository(database)
	reservationRepo := reservation.NewRepository(database)

	roomService := room.NewService(roomRepo, publisher)
	reservationService := reservation.NewService(reservationRepo, roomRepo, reservation.Options{
		Location:  loc,
		DailyCap:  cfg.DailyCap,
		Cache:     activeCache,
		Publisher: publisher,
	})

	srv := server.New(cfg, server.Handlers{
		Reservations: reservation.NewHandler(reservationService),
		Rooms:        room.NewHandler(roomService),
		Checks: map[string]server.Check{
			"postgres": database.PingContext,
			"redis":    activeCache.Ping,
		},
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Errorf("Error flushing traces: %v", err)
	}

	logger.Info("Server stopped")
}
