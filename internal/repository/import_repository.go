package repository

import (
	"context"
	"fmt"

	"krishi-web/internal/models"

	"github.com/jmoiron/sqlx"
)

// Keep each multi-row INSERT under MySQL's 65535 placeholder limit.
const validationErrorChunkSize = 1000

type ImportRepository struct {
	db *sqlx.DB
}

func NewImportRepository(db *sqlx.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// Import batches
func (r *ImportRepository) CreateBatch(ctx context.Context, batch *models.ImportBatch) error {
	query := `INSERT INTO import_batches (batch_code, batch_name, season, year, file_name,
	          total_records, valid_records, invalid_records, imported_by, status, created_at, updated_at)
	          VALUES (:batch_code, :batch_name, :season, :year, :file_name,
	          :total_records, :valid_records, :invalid_records, :imported_by, :status, NOW(), NOW())`
	result, err := r.db.NamedExecContext(ctx, query, batch)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	batch.ID = id
	return nil
}

func (r *ImportRepository) UpdateBatchStatus(ctx context.Context, id int64, status string) error {
	query := "UPDATE import_batches SET status = ?, updated_at = NOW() WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *ImportRepository) GetBatch(ctx context.Context, id int64) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	query := "SELECT * FROM import_batches WHERE id = ? LIMIT 1"
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *ImportRepository) GetBatchByCode(ctx context.Context, code string) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	query := "SELECT * FROM import_batches WHERE batch_code = ? LIMIT 1"
	if err := r.db.GetContext(ctx, &batch, query, code); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListBatches returns one page of batches, newest first, and the total count.
func (r *ImportRepository) ListBatches(ctx context.Context, limit, offset int) ([]models.ImportBatch, int64, error) {
	var batches []models.ImportBatch
	var total int64

	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM import_batches"); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM import_batches ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	if err := r.db.SelectContext(ctx, &batches, query, limit, offset); err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

// Validation errors
func (r *ImportRepository) InsertValidationErrors(ctx context.Context, errs []models.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}

	query := `INSERT INTO import_validation_errors (batch_id, row_num, field_name, error_type, error_message, raw_data)
	          VALUES (:batch_id, :row_num, :field_name, :error_type, :error_message, :raw_data)`

	for i := 0; i < len(errs); i += validationErrorChunkSize {
		end := i + validationErrorChunkSize
		if end > len(errs) {
			end = len(errs)
		}
		if _, err := r.db.NamedExecContext(ctx, query, errs[i:end]); err != nil {
			return fmt.Errorf("error inserting validation errors %d-%d: %w", i+1, end, err)
		}
	}

	return nil
}

func (r *ImportRepository) GetBatchErrors(ctx context.Context, batchID int64) ([]models.ValidationError, error) {
	var errs []models.ValidationError
	query := `SELECT id, batch_id, row_num, field_name, error_type, error_message, raw_data
	          FROM import_validation_errors WHERE batch_id = ? ORDER BY row_num, id`
	err := r.db.SelectContext(ctx, &errs, query, batchID)
	return errs, err
}

// Crop notifications. The caller controls chunk size; one call is one INSERT.
func (r *ImportRepository) InsertNotificationRecords(ctx context.Context, records []models.NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO crop_notifications (batch_id, row_num, district_id, crop_id,
	          original_district_name, original_tehsil_name, original_ri_name, original_halka_code,
	          original_village_name, original_village_code,
	          current_district_name, current_tehsil_name, current_ri_name, current_halka_code,
	          current_village_name, current_village_code,
	          crop_code, season, year, area_hectare, farmer_count,
	          is_valid, has_validation_errors, validation_notes, created_by, created_at)
	          VALUES (:batch_id, :row_num, :district_id, :crop_id,
	          :original_district_name, :original_tehsil_name, :original_ri_name, :original_halka_code,
	          :original_village_name, :original_village_code,
	          :current_district_name, :current_tehsil_name, :current_ri_name, :current_halka_code,
	          :current_village_name, :current_village_code,
	          :crop_code, :season, :year, :area_hectare, :farmer_count,
	          :is_valid, :has_validation_errors, :validation_notes, :created_by, NOW())`

	_, err := r.db.NamedExecContext(ctx, query, records)
	return err
}

func (r *ImportRepository) GetBatchRecords(ctx context.Context, batchID int64, limit, offset int) ([]models.NotificationRecord, error) {
	var records []models.NotificationRecord
	query := "SELECT * FROM crop_notifications WHERE batch_id = ? ORDER BY row_num LIMIT ? OFFSET ?"
	err := r.db.SelectContext(ctx, &records, query, batchID, limit, offset)
	return records, err
}
