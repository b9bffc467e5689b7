package middleware

import (
	"strings"

	"krishi-web/internal/config"
	"krishi-web/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware requires a bearer token and stores the caller identity in
// Locals (user_id, username, role). The username stamps imported_by.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization header is required", nil)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization header format", nil)
		}

		token := parts[1]

		// Development mode: accept dev tokens
		if cfg.AppEnv == "development" && strings.HasPrefix(token, "dev-token-") {
			c.Locals("user_id", 1)
			c.Locals("username", strings.TrimPrefix(token, "dev-token-"))
			c.Locals("role", "admin")
			return c.Next()
		}

		claims, err := utils.ValidateToken(token, cfg.JWTSecret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals("role").(string); role != "admin" {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", nil)
		}
		return c.Next()
	}
}

// CurrentUser returns the username set by AuthMiddleware.
func CurrentUser(c *fiber.Ctx) string {
	if name, ok := c.Locals("username").(string); ok && name != "" {
		return name
	}
	return "unknown"
}
