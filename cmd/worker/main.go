package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/kiosk-orders/internal/config"
	"github.com/joao-fontenele/kiosk-orders/internal/logging"
	"github.com/joao-fontenele/kiosk-orders/internal/messaging"
	"github.com/joao-fontenele/kiosk-orders/internal/telemetry"
	"github.com/joao-fontenele/kiosk-orders/internal/worker"
)

const serviceName = "order-history-worker"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Service: cfg.ServiceName,
		Version: cfg.ServiceVersion,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	if !cfg.KafkaEnabled() {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	dsn, err := cfg.PostgresDSN()
	if err != nil {
		logger.Error("invalid postgres url", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(ctx, "postgres", dsn)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
	defer func() { _ = consumer.Close() }()

	historyHandler := worker.NewHistoryHandler(worker.NewPostgresEventStore(db), logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting order history worker",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
		"group_id", cfg.KafkaGroupID,
	)

	if err := consumer.Consume(ctx, historyHandler.Handle); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
