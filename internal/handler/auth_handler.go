package handler

import (
	"strings"
	"time"

	"krishi-web/internal/config"
	"krishi-web/internal/middleware"
	"krishi-web/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const devTokenTTL = 12 * time.Hour

type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

type DevTokenRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// DevToken signs a token for any username. Only mounted in development.
func (h *AuthHandler) DevToken(c *fiber.Ctx) error {
	if h.cfg.AppEnv != "development" {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found", nil)
	}

	var req DevTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Username is required", nil)
	}
	if req.Role == "" {
		req.Role = "operator"
	}

	token, err := utils.GenerateToken(1, req.Username, req.Role, h.cfg.JWTSecret, devTokenTTL)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate access token", err)
	}

	return utils.SuccessResponse(c, "Token issued", fiber.Map{
		"access_token": token,
		"expires_in":   int(devTokenTTL.Seconds()),
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "User retrieved successfully", fiber.Map{
		"user_id":  c.Locals("user_id"),
		"username": middleware.CurrentUser(c),
		"role":     c.Locals("role"),
	})
}
