package handler

import (
	"krishi-web/internal/config"
	"krishi-web/internal/models"
	"krishi-web/internal/service"
	"krishi-web/internal/utils"
	"krishi-web/internal/validator"

	"github.com/gofiber/fiber/v2"
)

type HierarchyHandler struct {
	hierarchyService *service.HierarchyService
	cfg              *config.Config
}

func NewHierarchyHandler(hierarchyService *service.HierarchyService, cfg *config.Config) *HierarchyHandler {
	return &HierarchyHandler{
		hierarchyService: hierarchyService,
		cfg:              cfg,
	}
}

type ValidateHierarchyRequest struct {
	Records          []models.HierarchyRecord `json:"records"`
	ExpectedDistrict string                   `json:"expected_district"`
	CheckConsistency *bool                    `json:"check_consistency"`
	UseCache         *bool                    `json:"use_cache"`
	BatchSize        int                      `json:"batch_size"`
}

type SuggestRequest struct {
	Record   models.HierarchyRecord   `json:"record"`
	Pool     []models.HierarchyRecord `json:"pool"`
	District string                   `json:"district"`
}

func (h *HierarchyHandler) Validate(c *fiber.Ctx) error {
	var req ValidateHierarchyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if len(req.Records) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "At least one record is required", nil)
	}

	opts := validator.DefaultBatchOptions()
	opts.BatchSize = h.cfg.ValidationBatchSize
	opts.Yield = h.cfg.ValidationYield
	opts.ExpectedDistrict = req.ExpectedDistrict
	if req.CheckConsistency != nil {
		opts.CheckConsistency = *req.CheckConsistency
	}
	if req.UseCache != nil {
		opts.UseCache = *req.UseCache
	}
	if req.BatchSize > 0 {
		opts.BatchSize = req.BatchSize
	}

	report := h.hierarchyService.Validate(req.Records, opts)
	return utils.SuccessResponse(c, "Records validated", report)
}

func (h *HierarchyHandler) Suggest(c *fiber.Ctx) error {
	var req SuggestRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	district := req.District
	if district == "" {
		district = req.Record.DistrictName
	}

	suggestions, err := h.hierarchyService.Suggest(c.UserContext(), req.Record, req.Pool, district)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load hierarchy", err)
	}

	return utils.SuccessResponse(c, "Suggestions generated", suggestions)
}
