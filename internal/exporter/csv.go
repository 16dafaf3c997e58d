package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"collisio/internal/analysis"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a CSV writer rooted at dir
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	slog.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Write BOM if requested (helps Excel recognize UTF-8)
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return fullPath, file.Close()
}

// WriteTable writes a frequency table. Single-field tables get a share
// column; cross-tabulations get one column per classification plus a total.
func (w *CSVWriter) WriteTable(filePath string, t *analysis.FrequencyTable) (string, error) {
	headers, records := tableRecords(t)
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

func tableRecords(t *analysis.FrequencyTable) ([]string, [][]string) {
	total := t.Total()
	totals := t.RowTotals()

	if !t.IsCrossTab() {
		headers := []string{t.RowField, analysis.CountColumn, "Share %"}
		records := make([][]string, 0, t.Len())
		for i, label := range t.RowLabels {
			records = append(records, []string{label, formatInt(totals[i]), formatShare(totals[i], total)})
		}
		return headers, records
	}

	headers := append([]string{t.RowField}, t.ColLabels...)
	headers = append(headers, "Total")
	records := make([][]string, 0, t.Len())
	for i, label := range t.RowLabels {
		record := []string{label}
		for _, c := range t.Counts[i] {
			record = append(record, formatInt(c))
		}
		records = append(records, append(record, formatInt(totals[i])))
	}
	return headers, records
}

// resolvePath resolves a relative path against the writer's directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.dir == "" {
		return filePath
	}
	return filepath.Join(w.dir, filePath)
}
