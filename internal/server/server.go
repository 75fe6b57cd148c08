package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/mansoorceksport/imgpaste/internal/domain"
	"github.com/mansoorceksport/imgpaste/internal/handler"
	"github.com/mansoorceksport/imgpaste/internal/middleware"
	"github.com/mansoorceksport/imgpaste/internal/pathgen"
	"github.com/mansoorceksport/imgpaste/internal/repository"
	"github.com/mansoorceksport/imgpaste/internal/service"
	"github.com/mansoorceksport/imgpaste/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AppDependencies holds the dependencies required to start the application.
// Storage, Ledger, RedisClient and Metrics are optional.
type AppDependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Storage     domain.StorageService
	Ledger      domain.UploadLedger
	RedisClient *redis.Client
	Metrics     *telemetry.UploadMetrics
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) (*fiber.App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config

	paths, err := pathgen.New(cfg.Paths.Strategy, cfg.Paths.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create path generator: %w", err)
	}

	// Initialize services
	var (
		storage domain.StorageService
		uploads *service.UploadImageUseCase
		deletes *service.DeleteImageUseCase
		status  handler.StatusCache
	)
	if deps.Storage != nil {
		storage = deps.Storage
		if deps.RedisClient != nil && cfg.Redis.StatusCacheTTL > 0 {
			cached := repository.NewCachedStatusStorage(storage, repository.NewRedisCache(deps.RedisClient), cfg.Storage.Bucket, cfg.Redis.StatusCacheTTL)
			storage, status = cached, cached
		}
		storage = service.NewLedgeredStorage(storage, deps.Ledger, logger)
		uploads = service.NewUploadImageUseCase(storage, paths,
			service.WithUploadMetrics(deps.Metrics),
			service.WithUploadLogger(logger),
		)
		deletes = service.NewDeleteImageUseCase(storage, logger)
	}

	// Initialize handlers
	imageHandler := handler.NewImageHandler(storage, uploads, deletes, deps.Ledger)
	if status != nil {
		imageHandler.WithStatusCache(status)
	}

	app := fiber.New(fiber.Config{
		AppName:      "imgpaste",
		BodyLimit:    int(cfg.Server.MaxUploadSizeMB * 1024 * 1024),
		ErrorHandler: errorHandler(logger),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(middleware.RequestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.AllowOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods:  "GET, POST, DELETE, OPTIONS",
		ExposeHeaders: "X-Trace-ID, X-Idempotent-Replay",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "healthy",
			"service":    "imgpaste",
			"configured": imageHandler.Configured(),
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")
	if cfg.JWT.Secret != "" {
		v1.Use(middleware.VerifyUploaderToken(cfg.JWT.Secret))
	}
	if deps.RedisClient != nil {
		v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, cfg.Redis.IdempotencyTTL, logger))
	}

	v1.Post("/images", imageHandler.Upload)
	v1.Delete("/images", imageHandler.Delete)
	v1.Get("/images", imageHandler.List)
	v1.Get("/images/owned", imageHandler.Owned)
	v1.Get("/storage/status", imageHandler.StorageStatus)

	return app, nil
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
}
