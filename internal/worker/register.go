package worker

import (
	"krishi-web/internal/config"
	"krishi-web/internal/repository"
	"krishi-web/internal/service"
	"krishi-web/internal/utils"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func RegisterHandlers(mux *asynq.ServeMux, db *sqlx.DB, redis *redis.Client, cfg *config.Config) {
	logger := utils.GetLogger()

	importService := service.NewImportService(
		repository.NewMasterRepository(db),
		repository.NewImportRepository(db),
		logger,
		cfg.ImportChunkSize,
	)
	importHandler := NewImportTaskHandler(
		importService,
		service.NewExcelService(),
		service.NewProgressTracker(redis, logger),
		logger,
	)

	mux.Handle(TaskTypeImport, importHandler)
}
