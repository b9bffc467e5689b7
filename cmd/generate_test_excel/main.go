package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"krishi-web/internal/models"

	"github.com/xuri/excelize/v2"
)

func main() {
	out := flag.String("out", filepath.Join("storage", "uploads", "test_crop_survey.xlsx"), "output workbook path")
	flag.Parse()

	// Create new Excel file
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Crop Survey"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		os.Exit(1)
	}

	// Write headers
	for i, header := range models.ImportColumns {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(models.ImportColumns)-1)), headerStyle)

	// District, Tehsil, RI Name, Halka, Village Name, Village Code, Crop, Area, Farmers, Year
	testData := [][]interface{}{
		// Clean rows
		{"Raipur", "Abhanpur", "Gobra Navapara", "12", "Kendri", "RP1001", "PADDY", 12.5, 18, "2024"},
		{"Raipur", "Abhanpur", "Gobra Navapara", "12", "Kurud", "RP1002", "PADDY", "1,250.75", 40, "2024"},
		{"Raipur", "Arang", "Mandir Hasod", "7", "Chandkhuri", "RP2001", "MAIZE", 3.25, 6, "2024"},
		{"रायपुर", "Abhanpur", "Gobra Navapara", "13", "Tekari", "RP1003", "PADDY", 6, 9, "2024"},
		{"Durg", "Patan", "Jamgaon", "3", "Selud", "DG3001", "SOYBEAN", 8, 11, "2024"},

		// Unknown crop code (blocking)
		{"Raipur", "Arang", "Mandir Hasod", "7", "Bhilai", "RP2002", "XYZ", 2, 3, "2024"},
		// Rabi crop in a kharif import (blocking)
		{"Durg", "Patan", "Jamgaon", "3", "Amleshwar", "DG3002", "WHEAT", 4, 5, "2024"},
		// Tehsil outside its district (recorded, row stays valid)
		{"Durg", "Abhanpur", "Jamgaon", "3", "Kopedih", "DG3003", "PADDY", 1.5, 2, "2024"},
		// Negative and non numeric area (recorded, row stays valid)
		{"Raipur", "Arang", "Mandir Hasod", "7", "Lakhauli", "RP2003", "MAIZE", -5, 4, "2024"},
		{"Raipur", "Arang", "Mandir Hasod", "7", "Kharora", "RP2004", "MAIZE", "abc", 4, "2024"},
		// Unknown district and missing required cells
		{"Bastar City", "Jagdalpur", "Nangur", "1", "Tokapal", "BS0001", "PADDY", 3, 2, "2024"},
		{"Raipur", "", "Gobra Navapara", "12", "", "RP1004", "PADDY", "", 1, "2024"},
		// Duplicate village code and conflicting halka for the same RI circle
		{"Raipur", "Abhanpur", "Gobra Navapara", "14", "Kendri", "RP1001", "PADDY", 2, 2, "2024"},
	}

	// Write test data
	for rowIdx, rowData := range testData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	// Set column widths
	for i := range models.ImportColumns {
		col := getColumnName(i)
		f.SetColWidth(sheetName, col, col, 18)
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	if err := f.SaveAs(*out); err != nil {
		fmt.Printf("Error saving file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Test file created: %s\n", *out)
	fmt.Printf("  Total rows: %d\n", len(testData))
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}
