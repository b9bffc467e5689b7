package router

import (
	"context"

	"krishi-web/internal/config"
	"krishi-web/internal/handler"
	"krishi-web/internal/middleware"
	"krishi-web/internal/repository"
	"krishi-web/internal/service"
	"krishi-web/internal/utils"
	"krishi-web/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Handlers are the API endpoints mounted by RegisterAPIRoutes.
type Handlers struct {
	Auth      *handler.AuthHandler
	Import    *handler.ImportHandler
	Hierarchy *handler.HierarchyHandler
}

func SetupAPIRoutes(
	ctx context.Context,
	app *fiber.App,
	router fiber.Router,
	db *sqlx.DB,
	redis *redis.Client,
	cfg *config.Config,
) {
	logger := utils.GetLogger()

	// Initialize repositories
	masterRepo := repository.NewMasterRepository(db)
	importRepo := repository.NewImportRepository(db)

	// The validation cache is shared by every request and cleared on a timer.
	cache := validator.NewResultCache()
	cache.ClearEvery(ctx, cfg.ValidationCacheTTL)

	// Initialize services
	excelService := service.NewExcelService()
	importService := service.NewImportService(masterRepo, importRepo, logger, cfg.ImportChunkSize)
	hierarchyService := service.NewHierarchyService(masterRepo, validator.NewRecordValidator(nil, cache), logger)
	progress := service.NewProgressTracker(redis, logger)

	// Initialize Asynq client (optional - only if Redis is available)
	var enqueuer handler.TaskEnqueuer
	if redis != nil {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
		app.Hooks().OnShutdown(asynqClient.Close)
		enqueuer = asynqClient
	}

	handlers := Handlers{
		Auth:      handler.NewAuthHandler(cfg),
		Import:    handler.NewImportHandler(importService, hierarchyService, excelService, importRepo, progress, enqueuer, cfg, logger),
		Hierarchy: handler.NewHierarchyHandler(hierarchyService, cfg),
	}

	if db == nil {
		router.Use(func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Database is not available", nil)
		})
	}

	RegisterAPIRoutes(router, handlers, cfg)
}

func RegisterAPIRoutes(router fiber.Router, h Handlers, cfg *config.Config) {
	// Public routes
	if cfg.AppEnv == "development" {
		router.Post("/auth/dev-token", h.Auth.DevToken)
	}

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))
	protected.Get("/auth/me", h.Auth.Me)

	// Import routes
	imports := protected.Group("/imports")
	imports.Get("/template", h.Import.DownloadTemplate)
	imports.Get("/export", middleware.AdminOnly(), h.Import.ExportBatches)
	imports.Get("/progress/:code", h.Import.GetProgress)
	imports.Post("/validate", h.Import.ValidateFile)
	imports.Post("/", h.Import.Import)
	imports.Get("/", h.Import.ListBatches)
	imports.Get("/:id", h.Import.GetBatch)
	imports.Get("/:id/errors", h.Import.GetBatchErrors)

	// Hierarchy routes
	hierarchy := protected.Group("/hierarchy")
	hierarchy.Post("/validate", h.Hierarchy.Validate)
	hierarchy.Post("/suggest", h.Hierarchy.Suggest)
}
