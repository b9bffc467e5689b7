package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeImport = "crop_import:process"
	QueueImports   = "imports"
)

// ImportPayload describes a workbook already saved to disk and waiting to be
// imported.
type ImportPayload struct {
	BatchCode  string `json:"batch_code"`
	FilePath   string `json:"file_path"`
	FileName   string `json:"file_name"`
	BatchName  string `json:"batch_name"`
	Season     string `json:"season"`
	Year       string `json:"year"`
	ImportedBy string `json:"imported_by"`
}

// NewImportTask builds the task for p. Imports are never retried: a failed
// batch keeps its partial rows and must be re-uploaded.
func NewImportTask(p ImportPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeImport, payload,
		asynq.Queue(QueueImports),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.TaskID(p.BatchCode),
	), nil
}
