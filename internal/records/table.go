package records

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoHeader is returned when a source has no non-empty header row.
	ErrNoHeader = errors.New("spreadsheet has no header row")
	// ErrUnsupportedFormat is returned for sources that are neither xlsx, csv nor a sheets URL.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
)

// Table is the loaded accident record table. Rows keep source order and
// every row has exactly one Value per column.
type Table struct {
	columns []string
	index   map[string]int
	folded  map[string]int
	rows    [][]Value
}

// NewTable creates an empty table with the given header. Blank headers are
// named "Column N" and duplicates get a ".N" suffix, so every column is addressable.
func NewTable(headers []string) *Table {
	t := &Table{
		columns: make([]string, len(headers)),
		index:   make(map[string]int, len(headers)),
		folded:  make(map[string]int, len(headers)),
	}
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		base := name
		for n := 1; ; n++ {
			if _, dup := t.index[name]; !dup {
				break
			}
			name = fmt.Sprintf("%s.%d", base, n)
		}
		t.columns[i] = name
		t.index[name] = i
		if _, ok := t.folded[strings.ToLower(name)]; !ok {
			t.folded[strings.ToLower(name)] = i
		}
	}
	return t
}

// FromStrings builds a table from a header and raw string rows.
func FromStrings(headers []string, rows [][]string) *Table {
	t := NewTable(headers)
	for _, row := range rows {
		t.AppendRaw(row)
	}
	return t
}

// AppendRaw infers and appends one row. Short rows are padded with missing
// values; cells beyond the header are dropped.
func (t *Table) AppendRaw(raw []string) {
	row := make([]Value, len(t.columns))
	for i := range row {
		if i < len(raw) {
			row[i] = ParseValue(raw[i])
		}
	}
	t.rows = append(t.rows, row)
}

// Columns returns the column names in header order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// lookup resolves a column name exactly, then case-insensitively.
func (t *Table) lookup(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if i, ok := t.index[name]; ok {
		return i, true
	}
	i, ok := t.folded[strings.ToLower(name)]
	return i, ok
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.lookup(name)
	return ok
}

// Value returns the cell at row for the named column.
func (t *Table) Value(row int, name string) (Value, bool) {
	i, ok := t.lookup(name)
	if !ok || row < 0 || row >= len(t.rows) {
		return Value{}, false
	}
	return t.rows[row][i], true
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) ([]Value, bool) {
	i, ok := t.lookup(name)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, true
}

// IsText reports whether the column holds at least one text value, the
// equivalent of a non-numeric column.
func (t *Table) IsText(name string) bool {
	values, ok := t.Column(name)
	if !ok {
		return false
	}
	for _, v := range values {
		if v.Kind == Text {
			return true
		}
	}
	return false
}

// Distinct returns the number of distinct non-missing labels in the column.
func (t *Table) Distinct(name string) int {
	values, ok := t.Column(name)
	if !ok {
		return 0
	}
	seen := make(map[string]struct{})
	for _, v := range values {
		if !v.IsMissing() {
			seen[v.Label()] = struct{}{}
		}
	}
	return len(seen)
}

// Profile summarises one column for operators choosing what to chart.
type Profile struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Distinct int    `json:"distinct"`
	Missing  int    `json:"missing"`
}

// Profiles returns a Profile for every column in header order. Kind is the
// dominant non-missing kind, with text winning any tie.
func (t *Table) Profiles() []Profile {
	out := make([]Profile, 0, len(t.columns))
	for _, name := range t.columns {
		values, _ := t.Column(name)
		counts := make(map[Kind]int)
		missing := 0
		for _, v := range values {
			if v.IsMissing() {
				missing++
				continue
			}
			counts[v.Kind]++
		}
		kind := Missing
		if counts[Text] > 0 {
			kind = Text
		} else if counts[Date] >= counts[Number] && counts[Date] > 0 {
			kind = Date
		} else if counts[Number] > 0 {
			kind = Number
		}
		out = append(out, Profile{
			Name:     name,
			Kind:     kind.String(),
			Distinct: t.Distinct(name),
			Missing:  missing,
		})
	}
	return out
}
