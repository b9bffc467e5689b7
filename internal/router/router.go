package router

import (
	"context"
	"errors"

	"krishi-web/internal/config"
	"krishi-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Setup mounts the health check and the JSON API. ctx bounds background
// housekeeping started for the routes.
func Setup(ctx context.Context, app *fiber.App, db *sqlx.DB, redis *redis.Client, cfg *config.Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"app":      cfg.AppName,
			"database": db != nil,
			"redis":    redis != nil,
		})
	})

	api := app.Group("/api/v1")
	SetupAPIRoutes(ctx, app, api, db, redis, cfg)
}

// ErrorHandler renders unhandled errors in the API envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	utils.GetLogger().WithError(err).WithField("path", c.Path()).Error("Request failed")
	return utils.ErrorResponse(c, code, message, err)
}
