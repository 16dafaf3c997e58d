package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"collisio/internal/analysis"
	"collisio/internal/report"
)

// SummarySheet is the first sheet of the appendix workbook.
const SummarySheet = "Summary"

// WorkbookWriter builds the .xlsx appendix.
type WorkbookWriter struct{}

// Write renders every section table of r into one workbook.
func (WorkbookWriter) Write(w io.Writer, r *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	summary := [][]any{
		{r.Title},
		{r.Preparer},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{},
		{"Section", "Title", "Chart", "Rows", "Total", "Narrative", "Sheet"},
	}
	const headerRow = 5

	for _, s := range r.Sections {
		if s.Table == nil {
			continue
		}
		name := sheetName(s.Ordinal, s.Title)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %q: %w", name, err)
		}
		if err := writeTable(f, name, s.Table, bold); err != nil {
			return fmt.Errorf("write sheet %q: %w", name, err)
		}

		status := "ok"
		if !s.Narrative.OK() {
			status = s.Narrative.Err.Error()
		}
		summary = append(summary, []any{s.Ordinal, s.Title, string(s.Chart), s.Table.Len(), s.Table.Total(), status, name})
	}

	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "G1", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("G%d", headerRow), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 40); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	return f.Write(w)
}

func writeTable(f *excelize.File, sheet string, t *analysis.FrequencyTable, bold int) error {
	headers, records := tableRecords(t)

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	totals := t.RowTotals()
	for r, record := range records {
		row := make([]any, len(record))
		row[0] = record[0]
		if t.IsCrossTab() {
			for c, n := range t.Counts[r] {
				row[c+1] = n
			}
			row[len(row)-1] = totals[r]
		} else {
			row[1] = totals[r]
			row[2] = record[2]
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 32)
}
