package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"krishi-web/internal/config"
	"krishi-web/internal/middleware"
	"krishi-web/internal/models"
	"krishi-web/internal/service"
	"krishi-web/internal/utils"
	"krishi-web/internal/validator"
	"krishi-web/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BatchReader is the read side of the import store.
type BatchReader interface {
	GetBatch(ctx context.Context, id int64) (*models.ImportBatch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]models.ImportBatch, int64, error)
	GetBatchErrors(ctx context.Context, batchID int64) ([]models.ValidationError, error)
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ImportHandler struct {
	importService    *service.ImportService
	hierarchyService *service.HierarchyService
	excelService     *service.ExcelService
	batches          BatchReader
	progress         *service.ProgressTracker
	enqueuer         TaskEnqueuer
	cfg              *config.Config
	logger           *logrus.Logger
}

func NewImportHandler(
	importService *service.ImportService,
	hierarchyService *service.HierarchyService,
	excelService *service.ExcelService,
	batches BatchReader,
	progress *service.ProgressTracker,
	enqueuer TaskEnqueuer,
	cfg *config.Config,
	logger *logrus.Logger,
) *ImportHandler {
	return &ImportHandler{
		importService:    importService,
		hierarchyService: hierarchyService,
		excelService:     excelService,
		batches:          batches,
		progress:         progress,
		enqueuer:         enqueuer,
		cfg:              cfg,
		logger:           logger,
	}
}

func (h *ImportHandler) DownloadTemplate(c *fiber.Ctx) error {
	data, err := h.excelService.GenerateImportTemplate()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}
	return sendWorkbook(c, "crop_survey_template.xlsx", data)
}

// ValidateFile parses and validates an upload without persisting anything.
func (h *ImportHandler) ValidateFile(c *fiber.Ctx) error {
	season := strings.TrimSpace(c.FormValue("season"))
	if season == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Season is required", nil)
	}

	data, fileName, err := h.readUpload(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid upload", err)
	}

	rows, err := h.excelService.ParseImportFile(data)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to parse Excel file", err)
	}

	session, err := h.importService.NewSession(c.UserContext(), middleware.CurrentUser(c), nil)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load master data", err)
	}

	validated, err := h.importService.ValidateData(session, rows, season)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to validate data", err)
	}

	valid := 0
	for _, row := range validated {
		if row.IsValid {
			valid++
		}
	}

	hierarchy := h.hierarchyService.Validate(service.HierarchyRecordsFromRows(validated), h.batchOptions(c))

	return utils.SuccessResponse(c, "File validated", fiber.Map{
		"file_name":       fileName,
		"total_records":   len(validated),
		"valid_records":   valid,
		"invalid_records": len(validated) - valid,
		"rows":            validated,
		"consistency":     hierarchy.Consistency,
		"district":        hierarchy.District,
	})
}

// Import runs the whole pipeline in the request, or hands the file to the
// worker when async imports are enabled.
func (h *ImportHandler) Import(c *fiber.Ctx) error {
	info := models.BatchInfo{
		BatchCode: service.NewBatchCode(),
		BatchName: strings.TrimSpace(c.FormValue("batch_name")),
		Season:    strings.TrimSpace(c.FormValue("season")),
		Year:      strings.TrimSpace(c.FormValue("year")),
	}
	if info.Season == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Season is required", nil)
	}

	data, fileName, err := h.readUpload(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid upload", err)
	}
	info.FileName = fileName
	if info.BatchName == "" {
		info.BatchName = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	user := middleware.CurrentUser(c)

	if h.cfg.ImportAsync {
		return h.enqueueImport(c, info, user, data)
	}

	rows, err := h.excelService.ParseImportFile(data)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to parse Excel file", err)
	}

	ctx := c.UserContext()
	session, err := h.importService.NewSession(ctx, user, h.progress.Reporter(ctx, info.BatchCode))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load master data", err)
	}

	validated, err := h.importService.ValidateData(session, rows, info.Season)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to validate data", err)
	}

	hierarchy := h.hierarchyService.Validate(service.HierarchyRecordsFromRows(validated), h.batchOptions(c))
	h.logConsistency(info.BatchCode, hierarchy)

	result, err := h.importService.ImportToDatabase(ctx, session, validated, info)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Import failed", err)
	}

	return utils.SuccessResponse(c, "Import completed", result)
}

func (h *ImportHandler) enqueueImport(c *fiber.Ctx, info models.BatchInfo, user string, data []byte) error {
	if h.enqueuer == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background job processing is not available (Redis not connected)", nil)
	}

	if err := os.MkdirAll(h.cfg.UploadPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload directory", err)
	}
	filePath := filepath.Join(h.cfg.UploadPath, info.BatchCode+filepath.Ext(info.FileName))
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	task, err := worker.NewImportTask(worker.ImportPayload{
		BatchCode:  info.BatchCode,
		FilePath:   filePath,
		FileName:   info.FileName,
		BatchName:  info.BatchName,
		Season:     info.Season,
		Year:       info.Year,
		ImportedBy: user,
	})
	if err != nil {
		h.discardUpload(filePath)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create import task", err)
	}

	taskInfo, err := h.enqueuer.EnqueueContext(c.UserContext(), task)
	if err != nil {
		h.discardUpload(filePath)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to queue import task", err)
	}

	if err := h.progress.Set(c.UserContext(), info.BatchCode, 0); err != nil {
		h.logger.WithError(err).WithField("batch_code", info.BatchCode).Warn("Failed to initialise import progress")
	}

	h.logger.WithFields(logrus.Fields{
		"batch_code": info.BatchCode,
		"job_id":     taskInfo.ID,
		"user":       user,
	}).Info("Import queued")

	c.Status(fiber.StatusAccepted)
	return utils.SuccessResponse(c, "Import queued", fiber.Map{
		"job_id":     taskInfo.ID,
		"batch_code": info.BatchCode,
	})
}

// discardUpload removes a stored workbook no task will pick up.
func (h *ImportHandler) discardUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.logger.WithError(err).WithField("file", path).Warn("Failed to remove uploaded file")
	}
}

func (h *ImportHandler) batchOptions(c *fiber.Ctx) validator.BatchOptions {
	opts := validator.DefaultBatchOptions()
	opts.BatchSize = h.cfg.ValidationBatchSize
	opts.Yield = h.cfg.ValidationYield
	opts.ExpectedDistrict = strings.TrimSpace(c.FormValue("expected_district"))
	return opts
}

// logConsistency records duplicate village codes and conflicting halka or
// circle assignments. They never block an import.
func (h *ImportHandler) logConsistency(batchCode string, report validator.BatchReport) {
	log := h.logger.WithFields(logrus.Fields{
		"batch_code":      batchCode,
		"hierarchy_valid": len(report.ValidRecords),
		"hierarchy_bad":   len(report.InvalidRecords),
	})
	if report.Consistency == nil {
		log.Info("Hierarchy checked")
		return
	}

	log = log.WithFields(logrus.Fields{
		"is_consistent":      report.Consistency.IsConsistent,
		"duplicates":         len(report.Consistency.Duplicates),
		"consistency_errors": len(report.Consistency.ConsistencyErrors),
		"unique_villages":    report.Consistency.UniqueVillages,
	})
	if report.Consistency.IsConsistent {
		log.Info("Hierarchy checked")
		return
	}
	for _, issue := range report.Consistency.ConsistencyErrors {
		log.WithField("issue", issue).Debug("Hierarchy consistency issue")
	}
	log.Warn("Hierarchy inconsistencies in import")
}

func (h *ImportHandler) ListBatches(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)

	batches, total, err := h.batches.ListBatches(c.UserContext(), params.Limit, params.Offset())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import batches", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, total)
	return utils.PaginatedResponseBuilder(c, "Import batches retrieved successfully", batches, pagination)
}

func (h *ImportHandler) ExportBatches(c *fiber.Ctx) error {
	batches, _, err := h.batches.ListBatches(c.UserContext(), 100000, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import batches", err)
	}

	data, err := h.excelService.ExportBatches(batches)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export data", err)
	}

	fileName := fmt.Sprintf("import_batches_%s.xlsx", time.Now().Format("20060102_150405"))
	return sendWorkbook(c, fileName, data)
}

func (h *ImportHandler) GetBatch(c *fiber.Ctx) error {
	batch, done, err := h.lookupBatch(c)
	if done {
		return err
	}
	return utils.SuccessResponse(c, "Import batch retrieved successfully", batch)
}

// GetBatchErrors returns JSON, or the error workbook with ?format=xlsx.
func (h *ImportHandler) GetBatchErrors(c *fiber.Ctx) error {
	batch, done, err := h.lookupBatch(c)
	if done {
		return err
	}

	errs, err := h.batches.GetBatchErrors(c.UserContext(), batch.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve validation errors", err)
	}

	if c.Query("format") == "xlsx" {
		data, err := h.excelService.GenerateErrorReport(batch, errs)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate error report", err)
		}
		return sendWorkbook(c, fmt.Sprintf("errors_%s.xlsx", batch.BatchCode), data)
	}

	return utils.SuccessResponse(c, "Validation errors retrieved successfully", fiber.Map{
		"batch":  batch,
		"errors": errs,
	})
}

func (h *ImportHandler) GetProgress(c *fiber.Ctx) error {
	code := c.Params("code")

	percent, found, err := h.progress.Get(c.UserContext(), code)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read progress", err)
	}
	if !found {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No progress recorded for batch", nil)
	}

	return utils.SuccessResponse(c, "Progress retrieved", fiber.Map{
		"batch_code": code,
		"progress":   percent,
	})
}

// lookupBatch reports done=true when it has already written an error
// response; the caller returns err as is.
func (h *ImportHandler) lookupBatch(c *fiber.Ctx) (batch *models.ImportBatch, done bool, err error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return nil, true, utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid batch ID", err)
	}

	batch, err = h.batches.GetBatch(c.UserContext(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, true, utils.ErrorResponse(c, fiber.StatusNotFound, "Import batch not found", nil)
	}
	if err != nil {
		return nil, true, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import batch", err)
	}
	return batch, false, nil
}

func (h *ImportHandler) readUpload(c *fiber.Ctx) ([]byte, string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", errors.New("file is required")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".xlsx" && ext != ".xlsm" {
		return nil, "", errors.New("only Excel files (.xlsx, .xlsm) are allowed")
	}

	if file.Size > int64(h.cfg.UploadMaxSize) {
		return nil, "", errors.New("file size exceeds maximum limit")
	}

	f, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, file.Filename, nil
}

func sendWorkbook(c *fiber.Ctx, fileName string, data []byte) error {
	c.Attachment(fileName)
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(data)
}
