package repository

import (
	"context"
	"strings"

	"krishi-web/internal/models"

	"github.com/jmoiron/sqlx"
)

// MasterRepository reads the reference tables an import validates against.
type MasterRepository struct {
	db *sqlx.DB
}

func NewMasterRepository(db *sqlx.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

func (r *MasterRepository) ListDistricts(ctx context.Context) ([]models.District, error) {
	var districts []models.District
	query := "SELECT id, name, COALESCE(name_hi, '') AS name_hi FROM districts ORDER BY name"
	err := r.db.SelectContext(ctx, &districts, query)
	return districts, err
}

func (r *MasterRepository) ListCrops(ctx context.Context) ([]models.Crop, error) {
	var crops []models.Crop
	query := "SELECT id, crop_code, crop_name, season FROM crop_master ORDER BY season, crop_code"
	err := r.db.SelectContext(ctx, &crops, query)
	return crops, err
}

func (r *MasterRepository) ListTehsils(ctx context.Context) ([]models.Tehsil, error) {
	var tehsils []models.Tehsil
	query := "SELECT id, name, district_id FROM tehsils ORDER BY district_id, name"
	err := r.db.SelectContext(ctx, &tehsils, query)
	return tehsils, err
}

func (r *MasterRepository) ListRevenueInspectors(ctx context.Context) ([]models.RevenueInspector, error) {
	var inspectors []models.RevenueInspector
	query := "SELECT id, name, tehsil_id FROM revenue_inspectors ORDER BY tehsil_id, name"
	err := r.db.SelectContext(ctx, &inspectors, query)
	return inspectors, err
}

func (r *MasterRepository) ListVillages(ctx context.Context) ([]models.Village, error) {
	var villages []models.Village
	query := `SELECT id, name, village_code, COALESCE(halka_code, '') AS halka_code, ri_circle_id
	          FROM villages ORDER BY ri_circle_id, name`
	err := r.db.SelectContext(ctx, &villages, query)
	return villages, err
}

// ListHierarchyRecords flattens districts, tehsils, RI circles and villages
// into one record per village. An empty districtName returns every district.
func (r *MasterRepository) ListHierarchyRecords(ctx context.Context, districtName string) ([]models.HierarchyRecord, error) {
	var records []models.HierarchyRecord

	query := `
		SELECT
			d.name AS district_name,
			t.name AS level4_name,
			ri.name AS level5_name,
			COALESCE(v.halka_code, '') AS level6_code,
			v.name AS village_name,
			v.village_code AS village_code
		FROM villages v
		JOIN revenue_inspectors ri ON ri.id = v.ri_circle_id
		JOIN tehsils t ON t.id = ri.tehsil_id
		JOIN districts d ON d.id = t.district_id
	`

	args := []interface{}{}
	if name := strings.TrimSpace(districtName); name != "" {
		query += " WHERE d.name = ? OR d.name_hi = ?"
		args = append(args, name, name)
	}
	query += " ORDER BY d.name, t.name, ri.name, v.name"

	err := r.db.SelectContext(ctx, &records, query, args...)
	return records, err
}
