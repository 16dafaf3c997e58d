package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetsScheme prefixes Google Sheets sources: gsheet://<spreadsheetID>/<range>.
const SheetsScheme = "gsheet://"

// Loader resolves a source string into a Table.
type Loader struct {
	// Sheets serves gsheet:// sources; nil disables them.
	Sheets *SheetsLoader
}

// Load reads the table named by source, dispatching on its extension or scheme.
func (l *Loader) Load(ctx context.Context, source string) (*Table, error) {
	if strings.HasPrefix(source, SheetsScheme) {
		if l == nil || l.Sheets == nil {
			return nil, fmt.Errorf("%w: google sheets source without credentials", ErrUnsupportedFormat)
		}
		id, rng, err := ParseSheetsSource(source)
		if err != nil {
			return nil, err
		}
		return l.Sheets.Load(ctx, id, rng)
	}
	return LoadFile(source)
}

// LoadFile reads an .xlsx or .csv file from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadReader(f, filepath.Ext(path))
}

// LoadReader reads a spreadsheet of the format implied by ext from r.
func LoadReader(r io.Reader, ext string) (*Table, error) {
	switch strings.ToLower(ext) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(r)
	case ".csv":
		return LoadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// LoadXLSX reads the first worksheet of a workbook.
func LoadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return fromGrid(rows)
}

// LoadCSV reads comma separated values, tolerating a UTF-8 BOM and ragged rows.
func LoadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		rows = append(rows, record)
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return fromGrid(rows)
}

// fromGrid treats the first non-blank row as the header and drops fully blank rows.
func fromGrid(rows [][]string) (*Table, error) {
	start := -1
	for i, row := range rows {
		if !blank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrNoHeader
	}

	table := NewTable(rows[start])
	for _, row := range rows[start+1:] {
		if blank(row) {
			continue
		}
		table.AppendRaw(row)
	}
	return table, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
