package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

// CountColumn labels the only column of a single-field table.
const CountColumn = "Count"

// FrequencyTable is a dense count matrix. A single-field table has one
// column named CountColumn; a cross-tabulation has one column per
// classification value. Operations return new tables and never mutate.
type FrequencyTable struct {
	RowField  string
	ColField  string
	RowLabels []string
	ColLabels []string
	Counts    [][]int
}

// NewSingle builds a single-field table from parallel label and count slices.
func NewSingle(field string, labels []string, counts []int) *FrequencyTable {
	f := &FrequencyTable{
		RowField:  field,
		RowLabels: labels,
		ColLabels: []string{CountColumn},
		Counts:    make([][]int, len(labels)),
	}
	for i, c := range counts {
		f.Counts[i] = []int{c}
	}
	return f
}

// IsCrossTab reports whether the table cross-tabulates two fields.
func (f *FrequencyTable) IsCrossTab() bool {
	return f.ColField != ""
}

// Len returns the number of row categories.
func (f *FrequencyTable) Len() int {
	return len(f.RowLabels)
}

// Empty reports whether there is nothing to chart.
func (f *FrequencyTable) Empty() bool {
	return f.Len() == 0 || len(f.ColLabels) == 0 || f.Total() == 0
}

// Total is the sum of every cell.
func (f *FrequencyTable) Total() int {
	total := 0
	for _, row := range f.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// RowTotals returns the sum of each row.
func (f *FrequencyTable) RowTotals() []int {
	totals := make([]int, len(f.Counts))
	for i, row := range f.Counts {
		for _, c := range row {
			totals[i] += c
		}
	}
	return totals
}

// Count returns the cell for (row, col), or 0 if either label is absent.
func (f *FrequencyTable) Count(row, col string) int {
	r := indexOf(f.RowLabels, row)
	c := indexOf(f.ColLabels, col)
	if r < 0 || c < 0 {
		return 0
	}
	return f.Counts[r][c]
}

// Value returns the single-field count for label.
func (f *FrequencyTable) Value(label string) int {
	r := indexOf(f.RowLabels, label)
	if r < 0 {
		return 0
	}
	total := 0
	for _, c := range f.Counts[r] {
		total += c
	}
	return total
}

func (f *FrequencyTable) clone() *FrequencyTable {
	out := &FrequencyTable{
		RowField:  f.RowField,
		ColField:  f.ColField,
		RowLabels: append([]string(nil), f.RowLabels...),
		ColLabels: append([]string(nil), f.ColLabels...),
		Counts:    make([][]int, len(f.Counts)),
	}
	for i, row := range f.Counts {
		out.Counts[i] = append([]int(nil), row...)
	}
	return out
}

// permute returns a table whose rows are f's rows in the order of idx.
func (f *FrequencyTable) permute(idx []int) *FrequencyTable {
	out := f.clone()
	out.RowLabels = make([]string, len(idx))
	out.Counts = make([][]int, len(idx))
	for i, j := range idx {
		out.RowLabels[i] = f.RowLabels[j]
		out.Counts[i] = append([]int(nil), f.Counts[j]...)
	}
	return out
}

func (f *FrequencyTable) identity() []int {
	idx := make([]int, f.Len())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// SortByCountDesc orders rows by descending row total; ties fall back to label order.
func (f *FrequencyTable) SortByCountDesc() *FrequencyTable {
	totals := f.RowTotals()
	idx := f.identity()
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := totals[idx[a]], totals[idx[b]]
		if ta != tb {
			return ta > tb
		}
		return naturalLess(f.RowLabels[idx[a]], f.RowLabels[idx[b]])
	})
	return f.permute(idx)
}

// SortByLabel orders rows by label, comparing numeric labels as numbers.
func (f *FrequencyTable) SortByLabel() *FrequencyTable {
	idx := f.identity()
	sort.SliceStable(idx, func(a, b int) bool {
		return naturalLess(f.RowLabels[idx[a]], f.RowLabels[idx[b]])
	})
	return f.permute(idx)
}

// Reindex returns a table whose rows are exactly order. Labels absent from
// f get zero counts; rows of f not named in order are dropped.
func (f *FrequencyTable) Reindex(order []string) *FrequencyTable {
	out := f.clone()
	out.RowLabels = append([]string(nil), order...)
	out.Counts = make([][]int, len(order))
	for i, label := range order {
		if r := indexOf(f.RowLabels, label); r >= 0 {
			out.Counts[i] = append([]int(nil), f.Counts[r]...)
		} else {
			out.Counts[i] = make([]int, len(f.ColLabels))
		}
	}
	return out
}

// Head keeps the first n rows.
func (f *FrequencyTable) Head(n int) *FrequencyTable {
	if n <= 0 || n >= f.Len() {
		return f.clone()
	}
	idx := f.identity()[:n]
	return f.permute(idx)
}

// Drop removes the row with the given label, if present.
func (f *FrequencyTable) Drop(label string) *FrequencyTable {
	idx := make([]int, 0, f.Len())
	for i, l := range f.RowLabels {
		if l != label {
			idx = append(idx, i)
		}
	}
	return f.permute(idx)
}

// Collapse sums a cross-tabulation into a single-field table of row totals.
func (f *FrequencyTable) Collapse() *FrequencyTable {
	if !f.IsCrossTab() {
		return f.clone()
	}
	return NewSingle(f.RowField, append([]string(nil), f.RowLabels...), f.RowTotals())
}

// Format renders up to limit rows as an aligned text table; limit <= 0 means all.
func (f *FrequencyTable) Format(limit int) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	header := f.RowField
	if f.IsCrossTab() {
		header = f.RowField + " / " + f.ColField
	}
	fmt.Fprint(w, header)
	for _, c := range f.ColLabels {
		fmt.Fprintf(w, "\t%s", c)
	}
	fmt.Fprintln(w)

	for i, label := range f.RowLabels {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprint(w, label)
		for _, c := range f.Counts[i] {
			fmt.Fprintf(w, "\t%d", c)
		}
		fmt.Fprintln(w)
	}

	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func indexOf(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}

func sortLabels(labels []string) {
	sort.SliceStable(labels, func(a, b int) bool {
		return naturalLess(labels[a], labels[b])
	})
}

// naturalLess compares two labels numerically when both are numbers.
func naturalLess(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		return fa < fb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
