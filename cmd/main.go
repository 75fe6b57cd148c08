package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"github.com/mansoorceksport/imgpaste/internal/logger"
	"github.com/mansoorceksport/imgpaste/internal/repository"
	"github.com/mansoorceksport/imgpaste/internal/server"
	"github.com/mansoorceksport/imgpaste/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// logger config is part of cfg, so fall back to a production logger
		zap.Must(zap.NewProduction()).Fatal("failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	log.Info("starting imgpaste",
		zap.String("provider", cfg.Storage.Provider),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("path_strategy", cfg.Paths.Strategy),
	)

	ctx := context.Background()

	otelProvider, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: cfg.OTEL.ServiceVersion,
		Environment:    cfg.OTEL.Environment,
		Endpoint:       cfg.OTEL.Endpoint,
		PathPrefix:     cfg.OTEL.PathPrefix,
		Insecure:       cfg.OTEL.Insecure,
		Username:       cfg.OTEL.Username,
		Password:       cfg.OTEL.Password,
		Enabled:        cfg.OTEL.Enabled,
		Logger:         log,
	})
	if err != nil {
		log.Warn("failed to initialize OpenTelemetry", zap.Error(err))
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(shutdownCtx); err != nil {
				log.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	metrics, err := telemetry.NewUploadMetrics()
	if err != nil {
		log.Warn("failed to register upload metrics", zap.Error(err))
	}

	// Storage is optional: without it the API answers 503 on image routes
	storage, err := repository.NewStorageService(ctx, cfg.Storage, log)
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		log.Warn("image storage is not configured; uploads are disabled")
	case err != nil:
		log.Fatal("failed to create storage adapter", zap.Error(err))
	default:
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
		result := storage.TestConnection(checkCtx)
		cancel()
		if result.Success {
			log.Info("storage connected", zap.String("bucket", cfg.Storage.Bucket))
		} else {
			log.Warn("storage connection check failed", zap.String("message", result.Message))
		}
	}

	// Upload ledger is optional
	var ledger domain.UploadLedger
	if cfg.MongoDB.URI != "" {
		ctxMongo, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
		if cfg.OTEL.Enabled {
			mongoOpts.SetMonitor(otelmongo.NewMonitor())
		}

		mongoClient, err := mongo.Connect(ctxMongo, mongoOpts)
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Warn("error disconnecting from MongoDB", zap.Error(err))
			}
		}()

		if err := mongoClient.Ping(ctxMongo, nil); err != nil {
			log.Fatal("failed to ping MongoDB", zap.Error(err))
		}

		mongoLedger, err := repository.NewMongoUploadLedger(ctxMongo, mongoClient.Database(cfg.MongoDB.Database))
		if err != nil {
			log.Fatal("failed to initialize upload ledger", zap.Error(err))
		}
		ledger = mongoLedger
		log.Info("MongoDB connected", zap.String("database", cfg.MongoDB.Database))
	}

	// Redis backs idempotent uploads and is optional
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	app, err := server.NewApp(server.AppDependencies{
		Config:      cfg,
		Logger:      log,
		Storage:     storage,
		Ledger:      ledger,
		RedisClient: redisClient,
		Metrics:     metrics,
	})
	if err != nil {
		log.Fatal("failed to build app", zap.Error(err))
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("shutting down gracefully")
		if err := app.Shutdown(); err != nil {
			log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
