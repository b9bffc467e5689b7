package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"krishi-web/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMasterDataNotLoaded = errors.New("master data not loaded")
	ErrInvalidWorkbook     = errors.New("invalid workbook")
	ErrNoDataRows          = errors.New("workbook has no data rows")
)

const DefaultImportChunkSize = 100

// maxAreaHectare is the smallest magnitude crop_notifications.area_hectare
// (DECIMAL(12,4)) cannot store.
const maxAreaHectare = 1e8

// MasterDataSource reads the reference tables.
type MasterDataSource interface {
	ListDistricts(ctx context.Context) ([]models.District, error)
	ListCrops(ctx context.Context) ([]models.Crop, error)
	ListTehsils(ctx context.Context) ([]models.Tehsil, error)
	ListRevenueInspectors(ctx context.Context) ([]models.RevenueInspector, error)
	ListVillages(ctx context.Context) ([]models.Village, error)
}

// ImportStore persists batches. Each call is independent; there is no
// transaction spanning a whole import.
type ImportStore interface {
	CreateBatch(ctx context.Context, batch *models.ImportBatch) error
	UpdateBatchStatus(ctx context.Context, id int64, status string) error
	InsertValidationErrors(ctx context.Context, errs []models.ValidationError) error
	InsertNotificationRecords(ctx context.Context, records []models.NotificationRecord) error
}

// ImportSession carries what one import run needs: who runs it, the master
// data snapshot it validates against and where progress goes.
type ImportSession struct {
	User     string
	Master   *models.MasterData
	Progress ProgressFunc

	index *masterIndex
}

func (s *ImportSession) report(percent int) {
	if s.Progress != nil {
		s.Progress(percent)
	}
}

type ImportService struct {
	master    MasterDataSource
	store     ImportStore
	logger    *logrus.Logger
	chunkSize int
}

func NewImportService(master MasterDataSource, store ImportStore, logger *logrus.Logger, chunkSize int) *ImportService {
	if chunkSize <= 0 {
		chunkSize = DefaultImportChunkSize
	}
	return &ImportService{
		master:    master,
		store:     store,
		logger:    logger,
		chunkSize: chunkSize,
	}
}

// LoadMasterData fetches all reference tables. Any failure aborts the import.
func (s *ImportService) LoadMasterData(ctx context.Context) (*models.MasterData, error) {
	md := &models.MasterData{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		md.Districts, err = s.master.ListDistricts(gctx)
		if err != nil {
			return fmt.Errorf("failed to load districts: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		md.Crops, err = s.master.ListCrops(gctx)
		if err != nil {
			return fmt.Errorf("failed to load crop master: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		md.Hierarchy.Tehsils, err = s.master.ListTehsils(gctx)
		if err != nil {
			return fmt.Errorf("failed to load tehsils: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		md.Hierarchy.RevenueInspectors, err = s.master.ListRevenueInspectors(gctx)
		if err != nil {
			return fmt.Errorf("failed to load revenue inspectors: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		md.Hierarchy.Villages, err = s.master.ListVillages(gctx)
		if err != nil {
			return fmt.Errorf("failed to load villages: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"districts": len(md.Districts),
		"crops":     len(md.Crops),
		"tehsils":   len(md.Hierarchy.Tehsils),
		"ri":        len(md.Hierarchy.RevenueInspectors),
		"villages":  len(md.Hierarchy.Villages),
	}).Info("Master data loaded")

	return md, nil
}

// NewSession loads master data and binds it to user for one import.
func (s *ImportService) NewSession(ctx context.Context, user string, progress ProgressFunc) (*ImportSession, error) {
	md, err := s.LoadMasterData(ctx)
	if err != nil {
		return nil, err
	}
	return NewImportSession(user, md, progress), nil
}

func NewImportSession(user string, md *models.MasterData, progress ProgressFunc) *ImportSession {
	session := &ImportSession{User: user, Master: md, Progress: progress}
	if md != nil {
		session.index = newMasterIndex(md)
	}
	return session
}

// ValidateData annotates every row. Row numbers count the header as row 1,
// so the first data row is row 2.
func (s *ImportService) ValidateData(session *ImportSession, rows []models.ImportRow, season string) ([]models.ImportRow, error) {
	if session == nil || session.index == nil {
		return nil, ErrMasterDataNotLoaded
	}

	out := make([]models.ImportRow, len(rows))
	for i, row := range rows {
		row.RowNumber = i + 2
		out[i] = s.ValidateRow(session, row, season)
	}
	return out, nil
}

// ValidateRow runs every check and records every failure. Hierarchy and area
// problems are recorded without invalidating the row so it can be corrected
// after import.
func (s *ImportService) ValidateRow(session *ImportSession, row models.ImportRow, season string) models.ImportRow {
	row.IsValid = true
	row.Errors = []models.ValidationError{}

	addError := func(field, errorType, message string, blocking bool) {
		row.Errors = append(row.Errors, models.ValidationError{
			RowNumber: row.RowNumber,
			FieldName: field,
			ErrorType: errorType,
			Message:   message,
			RawData:   row.Fields,
		})
		if blocking {
			row.IsValid = false
		}
	}

	for _, col := range models.RequiredColumns {
		if row.Value(col) == "" {
			addError(col, models.ErrorTypeMissingData, fmt.Sprintf("%s आवश्यक है", col), true)
		}
	}

	var district models.District
	districtFound := false
	if name := row.Value(models.ColDistrict); name != "" {
		district, districtFound = session.index.district(name)
		if !districtFound {
			addError(models.ColDistrict, models.ErrorTypeInvalidHierarchy,
				fmt.Sprintf("जिला '%s' मास्टर डेटा में नहीं मिला", name), true)
		}
	}

	if code := row.Value(models.ColCropCode); code != "" {
		if _, ok := session.index.crop(code, season); !ok {
			addError(models.ColCropCode, models.ErrorTypeInvalidCrop,
				fmt.Sprintf("फसल कोड '%s' सीजन '%s' के लिए मान्य नहीं है", code, season), true)
		}
	}

	if tehsil := row.Value(models.ColTehsil); tehsil != "" && districtFound {
		if !session.index.tehsilInDistrict(tehsil, district.ID) {
			addError(models.ColTehsil, models.ErrorTypeInvalidHierarchy,
				fmt.Sprintf("तहसील '%s' जिला '%s' के अंतर्गत नहीं है", tehsil, district.Name), false)
		}
	}

	if raw := row.Value(models.ColArea); raw != "" {
		area, err := parseNumber(raw)
		switch {
		case err != nil || !(area > 0):
			addError(models.ColArea, models.ErrorTypeFormat,
				fmt.Sprintf("क्षेत्रफल '%s' धनात्मक संख्या होनी चाहिए", raw), false)
		case area >= maxAreaHectare:
			addError(models.ColArea, models.ErrorTypeFormat,
				fmt.Sprintf("क्षेत्रफल '%s' सीमा से बाहर है", raw), false)
		}
	}

	return row
}

// ImportToDatabase creates the batch header, stores the validation errors and
// then inserts one notification record per row in fixed-size chunks. A
// failure marks the batch failed; chunks already inserted stay in place.
func (s *ImportService) ImportToDatabase(ctx context.Context, session *ImportSession, rows []models.ImportRow, info models.BatchInfo) (*models.ImportResult, error) {
	if session == nil || session.index == nil {
		return nil, ErrMasterDataNotLoaded
	}

	validCount := 0
	for _, row := range rows {
		if row.IsValid {
			validCount++
		}
	}

	batchCode := info.BatchCode
	if batchCode == "" {
		batchCode = NewBatchCode()
	}

	batch := &models.ImportBatch{
		BatchCode:      batchCode,
		Name:           info.BatchName,
		Season:         info.Season,
		Year:           info.Year,
		FileName:       info.FileName,
		TotalRecords:   len(rows),
		ValidRecords:   validCount,
		InvalidRecords: len(rows) - validCount,
		ImportedBy:     session.User,
		Status:         models.BatchStatusProcessing,
	}

	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create import batch: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"batch_id":   batch.ID,
		"batch_code": batch.BatchCode,
		"rows":       len(rows),
	})
	log.Info("Import batch created")

	if err := s.ingest(ctx, session, batch, rows); err != nil {
		s.markFailed(ctx, batch, log)
		log.WithError(err).Error("Import failed")
		return nil, err
	}

	if err := s.store.UpdateBatchStatus(ctx, batch.ID, models.BatchStatusCompleted); err != nil {
		s.markFailed(ctx, batch, log)
		log.WithError(err).Error("Failed to complete import batch")
		return nil, fmt.Errorf("failed to complete import batch: %w", err)
	}
	batch.Status = models.BatchStatusCompleted
	log.WithField("valid", validCount).Info("Import completed")

	return &models.ImportResult{
		Success:        true,
		BatchID:        batch.ID,
		BatchCode:      batch.BatchCode,
		TotalRecords:   batch.TotalRecords,
		ValidRecords:   batch.ValidRecords,
		InvalidRecords: batch.InvalidRecords,
	}, nil
}

// markFailed is a single best-effort attempt. The caller's context may
// already be gone, so the update runs without its cancellation.
func (s *ImportService) markFailed(ctx context.Context, batch *models.ImportBatch, log *logrus.Entry) {
	if err := s.store.UpdateBatchStatus(context.WithoutCancel(ctx), batch.ID, models.BatchStatusFailed); err != nil {
		log.WithError(err).Error("Failed to mark import batch as failed")
		return
	}
	batch.Status = models.BatchStatusFailed
}

func (s *ImportService) ingest(ctx context.Context, session *ImportSession, batch *models.ImportBatch, rows []models.ImportRow) error {
	var errs []models.ValidationError
	for _, row := range rows {
		for _, e := range row.Errors {
			e.BatchID = batch.ID
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		if err := s.store.InsertValidationErrors(ctx, errs); err != nil {
			return fmt.Errorf("failed to store validation errors: %w", err)
		}
	}

	records := make([]models.NotificationRecord, len(rows))
	for i, row := range rows {
		records[i] = s.toNotificationRecord(session, batch, row)
	}

	for i := 0; i < len(records); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(records) {
			end = len(records)
		}

		if err := s.store.InsertNotificationRecords(ctx, records[i:end]); err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", i+1, end, err)
		}

		percent := end * 100 / len(records)
		session.report(percent)
		s.logger.WithFields(logrus.Fields{
			"batch_id": batch.ID,
			"inserted": end,
			"progress": percent,
		}).Debug("Notification chunk inserted")
	}

	return nil
}

func (s *ImportService) toNotificationRecord(session *ImportSession, batch *models.ImportBatch, row models.ImportRow) models.NotificationRecord {
	rec := models.NotificationRecord{
		BatchID:   batch.ID,
		RowNumber: row.RowNumber,

		OriginalDistrictName: row.Value(models.ColDistrict),
		OriginalTehsilName:   row.Value(models.ColTehsil),
		OriginalRIName:       row.Value(models.ColRIName),
		OriginalHalkaCode:    row.Value(models.ColHalka),
		OriginalVillageName:  row.Value(models.ColVillageName),
		OriginalVillageCode:  row.Value(models.ColVillageCode),

		CropCode:            row.Value(models.ColCropCode),
		Season:              batch.Season,
		Year:                row.Value(models.ColYear),
		IsValid:             row.IsValid,
		HasValidationErrors: len(row.Errors) > 0,
		CreatedBy:           session.User,
	}

	rec.CurrentDistrictName = rec.OriginalDistrictName
	rec.CurrentTehsilName = rec.OriginalTehsilName
	rec.CurrentRIName = rec.OriginalRIName
	rec.CurrentHalkaCode = rec.OriginalHalkaCode
	rec.CurrentVillageName = rec.OriginalVillageName
	rec.CurrentVillageCode = rec.OriginalVillageCode

	if d, ok := session.index.district(rec.OriginalDistrictName); ok {
		id := d.ID
		rec.DistrictID = &id
	}
	if c, ok := session.index.crop(rec.CropCode, batch.Season); ok {
		id := c.ID
		rec.CropID = &id
	}
	if area, err := parseNumber(row.Value(models.ColArea)); err == nil {
		rec.AreaHectare = storableArea(area)
	}
	if n, err := strconv.Atoi(row.Value(models.ColFarmerCount)); err == nil {
		rec.FarmerCount = n
	}

	if len(row.Errors) > 0 {
		notes := make([]string, len(row.Errors))
		for i, e := range row.Errors {
			notes[i] = e.Message
		}
		rec.ValidationNotes = strings.Join(notes, "; ")
	}

	return rec
}

// NewBatchCode returns a short unique batch code.
func NewBatchCode() string {
	return fmt.Sprintf("IMPORT-%s", uuid.New().String()[:8])
}

// storableArea returns 0 for values the area column cannot hold. The row
// already carries a format_error for them.
func storableArea(area float64) float64 {
	if math.IsNaN(area) || math.IsInf(area, 0) || math.Abs(area) >= maxAreaHectare {
		return 0
	}
	return area
}

// parseNumber accepts thousand separators.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}
