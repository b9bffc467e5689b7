package service

import (
	"fmt"

	"krishi-web/internal/models"

	"github.com/xuri/excelize/v2"
)

// ExportBatches writes the import batch list to a workbook.
func (s *ExcelService) ExportBatches(batches []models.ImportBatch) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import Batches"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Batch Code", "Batch Name", "Season", "Year", "File Name",
		"Total", "Valid", "Invalid", "Imported By", "Status", "Created At",
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Vertical: "center",
		},
	})

	for i, b := range batches {
		row := i + 2
		values := []interface{}{
			b.ID, b.BatchCode, b.Name, b.Season, b.Year, b.FileName,
			b.TotalRecords, b.ValidRecords, b.InvalidRecords, b.ImportedBy, b.Status,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for j, v := range values {
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", getColumnName(j), row), v)
		}
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", getColumnName(len(headers)-1), row), dataStyle)
	}

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "C", 22)
	f.SetColWidth(sheetName, "D", "I", 12)
	f.SetColWidth(sheetName, "J", "L", 20)

	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
