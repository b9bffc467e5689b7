package service

import (
	"bytes"
	"fmt"
	"strings"

	"krishi-web/internal/models"

	"github.com/xuri/excelize/v2"
)

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// ParseImportFile decodes the first sheet of a workbook into rows keyed by
// the header row. Blank rows are skipped.
func (s *ExcelService) ParseImportFile(data []byte) ([]models.ImportRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	// Get first sheet
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets found", ErrInvalidWorkbook)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %v", ErrInvalidWorkbook, err)
	}

	if len(rows) < 2 {
		return nil, ErrNoDataRows
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var result []models.ImportRow
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}

		fields := make(models.RawRow, len(header))
		for col, name := range header {
			if name == "" {
				continue
			}
			fields[name] = strings.TrimSpace(getCellValue(row, col))
		}

		result = append(result, models.ImportRow{
			RowNumber: len(result) + 2,
			Fields:    fields,
		})
	}

	if len(result) == 0 {
		return nil, ErrNoDataRows
	}

	return result, nil
}

// GenerateImportTemplate creates the upload template with a few sample rows.
func (s *ExcelService) GenerateImportTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Crop Survey"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}

	writeHeader(f, sheetName, models.ImportColumns, "#E0E0E0")

	sampleData := [][]interface{}{
		{"Raipur", "Abhanpur", "Gobra Navapara", "12", "Kendri", "RP1001", "PADDY", 12.5, 18, "2024"},
		{"Raipur", "Arang", "Mandir Hasod", "7", "Chandkhuri", "RP2001", "MAIZE", 3.25, 6, "2024"},
		{"Durg", "Patan", "Jamgaon", "3", "Selud", "DG3001", "SOYBEAN", 8, 11, "2024"},
	}

	for rowIdx, rowData := range sampleData {
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range models.ImportColumns {
		col := getColumnName(i)
		f.SetColWidth(sheetName, col, col, 18)
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateErrorReport lists every validation error of a batch followed by a
// summary block.
func (s *ExcelService) GenerateErrorReport(batch *models.ImportBatch, errs []models.ValidationError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import Errors"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}

	headers := []string{"Row Number", "Field", "Error Type", "Error Message", "Village Code", "Village Name"}
	writeHeader(f, sheetName, headers, "#FFE6E6")

	for rowIdx, e := range errs {
		row := rowIdx + 2
		values := []interface{}{
			e.RowNumber,
			e.FieldName,
			e.ErrorType,
			e.Message,
			e.RawData[models.ColVillageCode],
			e.RawData[models.ColVillageName],
		}
		for colIdx, value := range values {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 18)
	f.SetColWidth(sheetName, "D", "D", 60)
	f.SetColWidth(sheetName, "E", "F", 20)

	summaryStartRow := len(errs) + 4
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow), "Import Summary")
	if batch != nil {
		summary := [][2]interface{}{
			{"Batch:", batch.Name},
			{"Batch Code:", batch.BatchCode},
			{"Total Rows:", batch.TotalRecords},
			{"Valid Rows:", batch.ValidRecords},
			{"Invalid Rows:", batch.InvalidRecords},
			{"Status:", batch.Status},
		}
		for i, kv := range summary {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+1+i), kv[0])
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+1+i), kv[1])
		}
	}
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+8), "Errors Found:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+8), len(errs))

	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryStartRow), fmt.Sprintf("A%d", summaryStartRow), summaryStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheetName string, headers []string, color string) {
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)
}

// Helper functions
func getCellValue(row []string, index int) string {
	if index < len(row) {
		return row[index]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
