package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet is an in-memory accident spreadsheet used to build fixture files.
type Sheet struct {
	Headers []string
	Rows    [][]any
}

// AccidentHeaders is the column set of SampleAccidents.
var AccidentHeaders = []string{
	"Classification Of Accident",
	"Location",
	"Accident Year",
	"Accident Day",
	"Accident Date",
	"Accident Time",
	"Light",
	"Environment Condition 1",
	"Initial Impact Type",
	"Apparent Driver 1 Action",
	"Driver 1 Condition",
	"Latitude",
	"Longitude",
}

// SampleAccidents returns twelve accidents covering every bucket the report
// derives: all three severities, weekday and weekend dates, and times in
// each period of the day plus one unparseable time.
func SampleAccidents() Sheet {
	return Sheet{
		Headers: AccidentHeaders,
		Rows: [][]any{
			{"Fatal", "Main St & 1st Ave", 2022, "Monday", "2022-01-03", "07:15", "Daylight", "Clear", "Rear End", "Speeding", "Normal", 43.651, -79.383},
			{"Injury", "Main St & 1st Ave", 2022, "Tuesday", "2022-01-04", "1:05pm", "Daylight", "Rain", "Angle", "Failed to Yield", "Normal", 43.652, -79.381},
			{"Injury", "King St & Bay St", 2022, "Saturday", "2022-01-08", "18:40", "Dusk", "Clear", "Rear End", "Speeding", "Impaired", 43.648, -79.379},
			{"Property Damage Only", "King St & Bay St", 2022, "Sunday", "2022-01-09", "23:10", "Dark", "Snow", "Sideswipe", "Driving Properly", "Normal", 43.649, -79.380},
			{"Property Damage Only", "Queen St & Spadina", 2023, "Wednesday", "2023-02-15", "11:59 AM", "Daylight", "Clear", "Angle", "Driving Properly", "Normal", 43.650, -79.396},
			{"Injury", "Queen St & Spadina", 2023, "Thursday", "2023-02-16", "12:00", "Daylight", "Rain", "Rear End", "Following Too Close", "Fatigued", 43.651, -79.397},
			{"Property Damage Only", "Main St & 1st Ave", 2023, "Friday", "2023-03-17", "5:59", "Dark", "Clear", "Sideswipe", "Following Too Close", "Normal", 43.652, -79.384},
			{"Injury", "Dundas St & Yonge", 2023, "Friday", "2023-03-24", "21:00", "Dark", "Fog", "Angle", "Failed to Yield", "Normal", 43.656, -79.380},
			{"Property Damage Only", "Dundas St & Yonge", 2024, "Saturday", "2024-04-06", "16:59", "Daylight", "Clear", "Rear End", "Driving Properly", "Normal", 95.0, -79.381},
			{"Injury", "King St & Bay St", 2024, "Monday", "2024-04-08", "06:00", "Dawn", "Clear", "Rear End", "Speeding", "Normal", 43.648, -79.378},
			{"Property Damage Only", "Main St & 1st Ave", 2024, "Tuesday", "2024-05-14", "unknown", "Daylight", "Clear", "Angle", "Driving Properly", "Normal", nil, nil},
			{"Injury", "Queen St & Spadina", 2024, "Wednesday", "2024-05-15", "20:59", "Dusk", "Rain", "Sideswipe", "Failed to Yield", "Normal", 43.650, -79.395},
		},
	}
}

// WriteAccidentWorkbook writes sheet to an .xlsx file under t.TempDir and returns its path.
func WriteAccidentWorkbook(t *testing.T, sheet Sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	const name = "Sheet1"
	for col, header := range sheet.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		f.SetCellValue(name, cell, header)
	}
	for r, row := range sheet.Rows {
		for col, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			f.SetCellValue(name, cell, value)
		}
	}

	path := filepath.Join(t.TempDir(), "accidents.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// WriteAccidentCSV writes sheet to a .csv file under t.TempDir and returns its path.
func WriteAccidentCSV(t *testing.T, sheet Sheet) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "accidents.csv")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(sheet.Headers); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, row := range sheet.Rows {
		record := make([]string, len(row))
		for i, value := range row {
			if value != nil {
				record[i] = fmt.Sprint(value)
			}
		}
		if err := w.Write(record); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush csv: %v", err)
	}
	return path
}
