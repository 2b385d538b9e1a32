package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/timetable-backend/internal/app"
	"github.com/nekogravitycat/timetable-backend/internal/config"
	"github.com/nekogravitycat/timetable-backend/internal/db"
	"github.com/nekogravitycat/timetable-backend/internal/events"
	"github.com/nekogravitycat/timetable-backend/internal/logger"
	"github.com/nekogravitycat/timetable-backend/internal/memstore"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	appCfg := app.Config{
		IsProduction:    cfg.IsProduction(),
		ProdOrigins:     cfg.ProdOrigins,
		Logger:          log,
		SlotLockTimeout: cfg.SlotLockTimeout,
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTAccessTokenTTL,
	}

	// Storage
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal("failed to connect to db", zap.Error(err))
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			log.Fatal("failed to apply schema", zap.Error(err))
		}
		appCfg.DBPool = pool
	case config.StoreMemory:
		store := memstore.New(cfg.SlotLockTimeout)
		if cfg.SeedFile != "" {
			if err := store.LoadSeedFile(cfg.SeedFile); err != nil {
				log.Fatal("failed to load seed file", zap.String("path", cfg.SeedFile), zap.Error(err))
			}
		}
		appCfg.Store = store
		log.Warn("using in-memory store; bookings are lost on restart")
	}

	// Events
	publisher, err := newPublisher(cfg, log)
	if err != nil {
		log.Fatal("failed to create event publisher", zap.Error(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", zap.Error(err))
		}
	}()
	appCfg.Publisher = publisher

	container := app.NewContainer(appCfg)

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		log.Info("server running",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.String("events", cfg.EventsDriver),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited gracefully")
}

func newPublisher(cfg *config.Config, log *zap.Logger) (events.Publisher, error) {
	switch cfg.EventsDriver {
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log.Named("kafka")), nil
	case config.EventsAMQP:
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log.Named("amqp"))
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return events.NewNoopPublisher(), nil
}
