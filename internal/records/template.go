package records

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TemplateColumns are the headers of the blank input workbook.
var TemplateColumns = []string{
	"Classification Of Accident",
	"Location",
	"Accident Year",
	"Accident Day",
	"Accident Date",
	"Accident Time",
	"Light",
	"Environment Condition 1",
	"Environment Condition 2",
	"Initial Impact Type",
	"Impact Location",
	"Apparent Driver 1 Action",
	"Apparent Driver 2 Action",
	"Driver 1 Condition",
	"Driver 2 Condition",
	"Latitude",
	"Longitude",
}

// TemplateFilename is the conventional name of the blank input workbook.
const TemplateFilename = "collisio-template.xlsx"

// WriteTemplate writes a workbook holding only the expected header row.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range TemplateColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(TemplateColumns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, 22); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
