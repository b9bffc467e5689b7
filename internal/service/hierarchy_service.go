package service

import (
	"context"
	"fmt"

	"krishi-web/internal/models"
	"krishi-web/internal/validator"

	"github.com/sirupsen/logrus"
)

// HierarchySource provides the known-good village hierarchy.
type HierarchySource interface {
	ListHierarchyRecords(ctx context.Context, districtName string) ([]models.HierarchyRecord, error)
}

type HierarchyService struct {
	source    HierarchySource
	validator *validator.RecordValidator
	suggester *validator.CorrectionSuggester
	logger    *logrus.Logger
}

func NewHierarchyService(source HierarchySource, v *validator.RecordValidator, logger *logrus.Logger) *HierarchyService {
	if v == nil {
		v = validator.NewRecordValidator(nil, nil)
	}
	return &HierarchyService{
		source:    source,
		validator: v,
		suggester: validator.NewCorrectionSuggester(),
		logger:    logger,
	}
}

func (s *HierarchyService) Validate(records []models.HierarchyRecord, opts validator.BatchOptions) validator.BatchReport {
	report := s.validator.BatchValidate(records, opts)

	s.logger.WithFields(logrus.Fields{
		"total":      report.TotalRecords,
		"valid":      len(report.ValidRecords),
		"invalid":    len(report.InvalidRecords),
		"chunks":     report.Chunks,
		"cache_hits": report.CacheHits,
		"elapsed_ms": report.ElapsedMillis,
	}).Info("Hierarchy batch validated")

	return report
}

// Suggest proposes corrections for record. When pool is empty the known-good
// records of district are loaded from the store.
func (s *HierarchyService) Suggest(ctx context.Context, record models.HierarchyRecord, pool []models.HierarchyRecord, district string) (validator.Suggestions, error) {
	if len(pool) == 0 && s.source != nil {
		var err error
		pool, err = s.source.ListHierarchyRecords(ctx, district)
		if err != nil {
			return validator.Suggestions{}, fmt.Errorf("failed to load hierarchy pool: %w", err)
		}
	}
	return s.suggester.Suggest(record, pool), nil
}

// HierarchyRecordFromRow maps an import row onto the hierarchy fields.
func HierarchyRecordFromRow(row models.ImportRow) models.HierarchyRecord {
	return models.HierarchyRecord{
		DistrictName: row.Value(models.ColDistrict),
		Level4Name:   row.Value(models.ColTehsil),
		Level5Name:   row.Value(models.ColRIName),
		Level6Code:   row.Value(models.ColHalka),
		VillageName:  row.Value(models.ColVillageName),
		VillageCode:  row.Value(models.ColVillageCode),
	}
}

// HierarchyRecordsFromRows is HierarchyRecordFromRow over a whole sheet.
func HierarchyRecordsFromRows(rows []models.ImportRow) []models.HierarchyRecord {
	out := make([]models.HierarchyRecord, len(rows))
	for i, row := range rows {
		out[i] = HierarchyRecordFromRow(row)
	}
	return out
}
