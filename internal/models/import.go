package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Spreadsheet column headers recognised by the crop survey import.
const (
	ColDistrict    = "District"
	ColTehsil      = "Tehsil"
	ColRIName      = "RI Name"
	ColHalka       = "Halka Number"
	ColVillageName = "Village Name"
	ColVillageCode = "Village Code"
	ColCropCode    = "Crop Code"
	ColArea        = "Area (Ha)"
	ColFarmerCount = "Farmer Count"
	ColYear        = "Year"
)

// ImportColumns is the column order used for templates.
var ImportColumns = []string{
	ColDistrict, ColTehsil, ColRIName, ColHalka, ColVillageName,
	ColVillageCode, ColCropCode, ColArea, ColFarmerCount, ColYear,
}

// RequiredColumns must be non-empty on every data row.
var RequiredColumns = []string{
	ColDistrict, ColTehsil, ColRIName, ColVillageName, ColCropCode, ColArea, ColYear,
}

const (
	ErrorTypeMissingData      = "missing_data"
	ErrorTypeInvalidHierarchy = "invalid_hierarchy"
	ErrorTypeInvalidCrop      = "invalid_crop"
	ErrorTypeFormat           = "format_error"
)

const (
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// RawRow is a snapshot of a spreadsheet row keyed by column header.
// It is stored as JSON.
type RawRow map[string]string

func (r RawRow) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *RawRow) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported raw row type %T", src)
	}
}

// ImportRow is one data row of an uploaded workbook.
type ImportRow struct {
	RowNumber int               `json:"row_number"`
	Fields    RawRow            `json:"fields"`
	IsValid   bool              `json:"is_valid"`
	Errors    []ValidationError `json:"errors"`
}

// Value returns the trimmed cell under the given header.
func (r ImportRow) Value(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

type ValidationError struct {
	ID        int64  `db:"id" json:"id,omitempty"`
	BatchID   int64  `db:"batch_id" json:"batch_id,omitempty"`
	RowNumber int    `db:"row_num" json:"row_number"`
	FieldName string `db:"field_name" json:"field_name"`
	ErrorType string `db:"error_type" json:"error_type"`
	Message   string `db:"error_message" json:"message"`
	RawData   RawRow `db:"raw_data" json:"raw_data,omitempty"`
}

type ImportBatch struct {
	ID             int64     `db:"id" json:"id"`
	BatchCode      string    `db:"batch_code" json:"batch_code"`
	Name           string    `db:"batch_name" json:"name"`
	Season         string    `db:"season" json:"season"`
	Year           string    `db:"year" json:"year"`
	FileName       string    `db:"file_name" json:"file_name"`
	TotalRecords   int       `db:"total_records" json:"total_records"`
	ValidRecords   int       `db:"valid_records" json:"valid_records"`
	InvalidRecords int       `db:"invalid_records" json:"invalid_records"`
	ImportedBy     string    `db:"imported_by" json:"imported_by"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// NotificationRecord is the persisted per-row outcome of an import. The
// current_* columns start as a copy of original_* and are edited during
// manual correction.
type NotificationRecord struct {
	ID         int64  `db:"id" json:"id"`
	BatchID    int64  `db:"batch_id" json:"batch_id"`
	RowNumber  int    `db:"row_num" json:"row_number"`
	DistrictID *int64 `db:"district_id" json:"district_id"`
	CropID     *int64 `db:"crop_id" json:"crop_id"`

	OriginalDistrictName string `db:"original_district_name" json:"original_district_name"`
	OriginalTehsilName   string `db:"original_tehsil_name" json:"original_tehsil_name"`
	OriginalRIName       string `db:"original_ri_name" json:"original_ri_name"`
	OriginalHalkaCode    string `db:"original_halka_code" json:"original_halka_code"`
	OriginalVillageName  string `db:"original_village_name" json:"original_village_name"`
	OriginalVillageCode  string `db:"original_village_code" json:"original_village_code"`

	CurrentDistrictName string `db:"current_district_name" json:"current_district_name"`
	CurrentTehsilName   string `db:"current_tehsil_name" json:"current_tehsil_name"`
	CurrentRIName       string `db:"current_ri_name" json:"current_ri_name"`
	CurrentHalkaCode    string `db:"current_halka_code" json:"current_halka_code"`
	CurrentVillageName  string `db:"current_village_name" json:"current_village_name"`
	CurrentVillageCode  string `db:"current_village_code" json:"current_village_code"`

	CropCode    string  `db:"crop_code" json:"crop_code"`
	Season      string  `db:"season" json:"season"`
	Year        string  `db:"year" json:"year"`
	AreaHectare float64 `db:"area_hectare" json:"area_hectare"`
	FarmerCount int     `db:"farmer_count" json:"farmer_count"`

	IsValid             bool      `db:"is_valid" json:"is_valid"`
	HasValidationErrors bool      `db:"has_validation_errors" json:"has_validation_errors"`
	ValidationNotes     string    `db:"validation_notes" json:"validation_notes"`
	CreatedBy           string    `db:"created_by" json:"created_by"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// BatchInfo describes an import requested by a user.
type BatchInfo struct {
	BatchCode string `json:"batch_code"`
	BatchName string `json:"batch_name"`
	Season    string `json:"season"`
	Year      string `json:"year"`
	FileName  string `json:"file_name"`
}

type ImportResult struct {
	Success        bool   `json:"success"`
	BatchID        int64  `json:"batch_id"`
	BatchCode      string `json:"batch_code"`
	TotalRecords   int    `json:"total_records"`
	ValidRecords   int    `json:"valid_records"`
	InvalidRecords int    `json:"invalid_records"`
}
