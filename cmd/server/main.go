package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/adapter/location"
	natsAdapter "github.com/sinyoro/market-service/internal/adapter/messaging/nats"
	"github.com/sinyoro/market-service/internal/adapter/repository/cache"
	"github.com/sinyoro/market-service/internal/adapter/repository/mongodb"
	"github.com/sinyoro/market-service/internal/adapter/repository/sqlite"
	"github.com/sinyoro/market-service/internal/adapter/rest"
	"github.com/sinyoro/market-service/internal/adapter/storage/s3"
	"github.com/sinyoro/market-service/internal/config"
	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/listing/store"
	"github.com/sinyoro/market-service/internal/listing/usecase"
	"github.com/sinyoro/market-service/internal/mailer"
	"github.com/sinyoro/market-service/internal/platform/logger"
	"github.com/sinyoro/market-service/internal/platform/metrics"
	"github.com/sinyoro/market-service/internal/platform/tracer"
	"github.com/sinyoro/market-service/internal/scheduler"
)

func main() {
	configPath := "config.yaml"
	if cp := os.Getenv("CONFIG_PATH"); cp != "" {
		configPath = cp
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(nil)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.InitTracer(ctx, &cfg.Tracing)
	if err != nil {
		appLogger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(tctx); err != nil {
			appLogger.Error("Failed to shut down tracer", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager("market")

	backend, err := openBackend(cfg, appLogger)
	if err != nil {
		// The store runs in memory only for this session.
		appLogger.Error("Failed to open storage backend", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		backend = nil
	}
	if backend != nil {
		defer backend.Close()
	}

	listingStore := store.New(ctx, backend, appLogger,
		store.WithSaveTimeout(cfg.Storage.SaveTimeout),
		store.WithDegradedHook(metricsManager.SetDegraded),
	)
	appLogger.Info("Listing store ready", zap.Any("status", listingStore.Status()))

	provider, reporter, err := newLocationProvider(&cfg.Location)
	if err != nil {
		appLogger.Fatal("Failed to configure location provider", zap.Error(err))
	}
	tracker := usecase.NewLocationTracker(provider, appLogger)

	opts := []usecase.Option{
		usecase.WithMetrics(metricsManager),
		usecase.WithRetention(cfg.Market.Retention),
	}

	if cfg.NATS.URL != "" {
		publisher, err := natsAdapter.NewNATSPublisher(&cfg.NATS, appLogger)
		if err != nil {
			appLogger.Error("NATS unavailable; listings stay pending", zap.Error(err))
		} else {
			defer publisher.Close()
			opts = append(opts, usecase.WithSynchronizer(publisher))
		}
	}

	if cfg.SMTP.Host != "" {
		opts = append(opts, usecase.WithNotifier(mailer.NewSMTPMailer(&cfg.SMTP, appLogger)))
	}

	var photoStorage domain.PhotoStorage
	if cfg.MinIO.Endpoint != "" {
		storage, err := s3.NewS3Storage(ctx, &cfg.MinIO, appLogger)
		if err != nil {
			appLogger.Error("MinIO unavailable; photos are kept inline", zap.Error(err))
		} else {
			photoStorage = storage
		}
	}

	listingUC := usecase.NewListingUsecase(listingStore, listingStore, tracker, appLogger, opts...)
	favoriteUC := usecase.NewFavoriteUsecase(listingStore, listingStore, appLogger)
	photoUC := usecase.NewPhotoUsecase(photoStorage, listingStore, cfg.HTTP.MaxPhotoBytes, appLogger)

	sched := scheduler.New(listingUC, cfg.Market.ExpirySchedule, cfg.Market.SyncSchedule, appLogger)
	if err := sched.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	handler := rest.NewHandler(listingUC, favoriteUC, photoUC, tracker, reporter, cfg.HTTP.MaxPhotoBytes, appLogger)
	server := rest.NewServer(&cfg.HTTP, rest.NewRouter(handler, metricsManager, appLogger))

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down market service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	appLogger.Info("Market service stopped")
}

func openBackend(cfg *config.Config, log *logger.Logger) (domain.Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLite.Path)
	case config.DriverRedis:
		client, err := cache.NewRedisClient(&cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisKV(client, cfg.Redis.KeyPrefix, log), nil
	case config.DriverMongo:
		client, err := mongodb.NewMongoDBConnection(&cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return mongodb.NewKVRepository(client, cfg.Mongo.Database, cfg.Mongo.Collection), nil
	default:
		return nil, nil
	}
}

// newLocationProvider returns the configured provider and, for the reported
// provider, the reporter the HTTP layer feeds.
func newLocationProvider(cfg *config.LocationConfig) (domain.LocationProvider, rest.Reporter, error) {
	if cfg.Provider == "static" {
		p, err := location.NewStaticProvider(cfg.Latitude, cfg.Longitude, cfg.Accuracy)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}
	p := location.NewReportedProvider(cfg.MaxAge)
	return p, p, nil
}
