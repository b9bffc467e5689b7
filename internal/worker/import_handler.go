package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"krishi-web/internal/models"
	"krishi-web/internal/service"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

type ImportTaskHandler struct {
	importService *service.ImportService
	excelService  *service.ExcelService
	progress      *service.ProgressTracker
	logger        *logrus.Logger
}

func NewImportTaskHandler(
	importService *service.ImportService,
	excelService *service.ExcelService,
	progress *service.ProgressTracker,
	logger *logrus.Logger,
) *ImportTaskHandler {
	return &ImportTaskHandler{
		importService: importService,
		excelService:  excelService,
		progress:      progress,
		logger:        logger,
	}
}

// ProcessTask parses the stored workbook, validates it against freshly
// loaded master data and ingests it under the batch code chosen at upload.
// The stored workbook is removed once no further attempt will read it.
func (h *ImportTaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) (err error) {
	var payload ImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.WithFields(logrus.Fields{
		"batch_code": payload.BatchCode,
		"file":       payload.FileName,
	})
	log.Info("Starting import task")

	defer func() {
		if err != nil && !finalAttempt(ctx, err) {
			return
		}
		if rerr := os.Remove(payload.FilePath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			log.WithError(rerr).Warn("Failed to remove uploaded file")
		}
	}()

	data, err := os.ReadFile(payload.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read uploaded file: %w", err)
	}

	rows, err := h.excelService.ParseImportFile(data)
	if err != nil {
		return fmt.Errorf("failed to parse workbook: %w", err)
	}

	session, err := h.importService.NewSession(ctx, payload.ImportedBy, h.progress.Reporter(ctx, payload.BatchCode))
	if err != nil {
		return fmt.Errorf("failed to load master data: %w", err)
	}

	validated, err := h.importService.ValidateData(session, rows, payload.Season)
	if err != nil {
		return err
	}

	result, err := h.importService.ImportToDatabase(ctx, session, validated, models.BatchInfo{
		BatchCode: payload.BatchCode,
		BatchName: payload.BatchName,
		Season:    payload.Season,
		Year:      payload.Year,
		FileName:  payload.FileName,
	})
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"batch_id": result.BatchID,
		"total":    result.TotalRecords,
		"valid":    result.ValidRecords,
		"invalid":  result.InvalidRecords,
	}).Info("Import task completed")

	return nil
}

// finalAttempt reports whether asynq will give up on the task after err.
// Outside a server there is no retry at all.
func finalAttempt(ctx context.Context, err error) bool {
	if errors.Is(err, asynq.SkipRetry) {
		return true
	}
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
