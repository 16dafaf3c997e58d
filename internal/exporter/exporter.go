package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"collisio/internal/report"
)

// AppendixName is the file name of the appendix workbook.
const AppendixName = "appendix.xlsx"

// CSVDir is the run subdirectory holding per-section CSV tables.
const CSVDir = "csv"

// Exporter writes a report's tables under one directory.
type Exporter struct {
	dir      string
	csv      *CSVWriter
	workbook WorkbookWriter
}

// New returns an exporter writing into dir.
func New(dir string) *Exporter {
	return &Exporter{dir: dir, csv: NewCSVWriter(filepath.Join(dir, CSVDir))}
}

// Export writes the appendix workbook and, when withCSV is set, one CSV
// per section. It returns the paths written.
func (e *Exporter) Export(r *report.Report, withCSV bool) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	appendix := filepath.Join(e.dir, AppendixName)
	f, err := os.Create(appendix)
	if err != nil {
		return nil, err
	}
	if err := e.workbook.Write(f, r); err != nil {
		f.Close()
		return nil, fmt.Errorf("write appendix: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	paths := []string{appendix}

	if !withCSV {
		return paths, nil
	}
	for _, s := range r.Sections {
		if s.Table == nil {
			continue
		}
		name := fmt.Sprintf("section_%02d_%s.csv", s.Ordinal, slug(s.Title))
		path, err := e.csv.WriteTable(name, s.Table)
		if err != nil {
			return paths, fmt.Errorf("export section %d: %w", s.Ordinal, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
