package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/kiosk-orders/internal/catalog"
	"github.com/joao-fontenele/kiosk-orders/internal/config"
	"github.com/joao-fontenele/kiosk-orders/internal/logging"
	"github.com/joao-fontenele/kiosk-orders/internal/messaging"
	"github.com/joao-fontenele/kiosk-orders/internal/orders"
	"github.com/joao-fontenele/kiosk-orders/internal/telemetry"
)

const serviceName = "orders"

func main() {
	ctx := context.Background()

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

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(runtime.WithMeterProvider(otel.GetMeterProvider())); err != nil {
		logger.Error("failed to start runtime metrics", "error", err)
		os.Exit(1)
	}

	orderMetrics, err := telemetry.NewOrderMetrics(otel.Meter("orders"))
	if err != nil {
		logger.Error("failed to create order metrics", "error", err)
		os.Exit(1)
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Error("failed to open order store", "error", err, "store", cfg.OrderStore)
		os.Exit(1)
	}
	defer closeRepo()

	opts := []orders.ServiceOption{
		orders.WithMetrics(orderMetrics),
		orders.WithConcurrency(cfg.CatalogConcurrency),
	}

	if cfg.KafkaEnabled() {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = producer.Close() }()
		opts = append(opts, orders.WithPublisher(producer))
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	// The client timeout is a backstop; each lookup has its own deadline.
	catalogClient := catalog.NewClient(cfg.CatalogURL, telemetry.NewHTTPClient(2*cfg.CatalogTimeout), cfg.CatalogTimeout)

	service := orders.NewService(repo, catalogClient, logger, opts...)
	handler := orders.NewHandler(service, logger)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.NewHTTPHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service",
			"port", cfg.Port,
			"store", cfg.OrderStore,
			"catalog_url", cfg.CatalogURL,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func openRepository(ctx context.Context, cfg config.Config) (orders.Repository, func(), error) {
	switch cfg.OrderStore {
	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}

		repo := orders.NewMongoOrderRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil

	default:
		dsn, err := cfg.PostgresDSN()
		if err != nil {
			return nil, nil, err
		}

		db, err := telemetry.OpenDB(ctx, "postgres", dsn)
		if err != nil {
			return nil, nil, err
		}
		return orders.NewOrderRepository(db), func() { _ = db.Close() }, nil
	}
}
