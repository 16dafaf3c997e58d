package analysis

import (
	"errors"
	"fmt"

	"collisio/internal/records"
)

// ErrMissingField is returned when an aggregation names a column the table lacks.
var ErrMissingField = errors.New("field not present in table")

// Order selects how aggregated rows are arranged for display.
type Order string

const (
	OrderDefault   Order = ""
	OrderCountDesc Order = "count_desc"
	OrderLabel     Order = "label"
	OrderCanonical Order = "canonical"
)

// Spec describes one aggregation. Without By it counts Field; with By it
// cross-tabulates By (rows) against Field (columns). Derive applies to By
// when set, otherwise to Field.
type Spec struct {
	Field       string     `yaml:"field" json:"field" validate:"required"`
	By          string     `yaml:"by,omitempty" json:"by,omitempty"`
	Derive      Derivation `yaml:"derive,omitempty" json:"derive,omitempty" validate:"omitempty,oneof=weekday daytype month timeofday"`
	Order       Order      `yaml:"order,omitempty" json:"order,omitempty" validate:"omitempty,oneof=count_desc label canonical"`
	Limit       int        `yaml:"limit,omitempty" json:"limit,omitempty" validate:"min=0"`
	Collapse    bool       `yaml:"collapse,omitempty" json:"collapse,omitempty"`
	DropUnknown bool       `yaml:"drop_unknown,omitempty" json:"drop_unknown,omitempty"`
}

// Fields lists the columns the spec reads.
func (s Spec) Fields() []string {
	if s.By == "" {
		return []string{s.Field}
	}
	return []string{s.By, s.Field}
}

// Count tallies each distinct non-missing value of field.
func Count(t *records.Table, field string) (*FrequencyTable, error) {
	return Aggregate(t, Spec{Field: field, Order: OrderLabel})
}

// CrossTab counts every (group, classification) pair; missing pairs are 0.
func CrossTab(t *records.Table, group, classification string) (*FrequencyTable, error) {
	return Aggregate(t, Spec{Field: classification, By: group, Order: OrderLabel})
}

// Aggregate computes the frequency table described by spec.
func Aggregate(t *records.Table, spec Spec) (*FrequencyTable, error) {
	for _, f := range spec.Fields() {
		if !t.Has(f) {
			return nil, fmt.Errorf("%w: %q", ErrMissingField, f)
		}
	}
	if !spec.Derive.Valid() {
		return nil, fmt.Errorf("unknown derivation %q", spec.Derive)
	}

	var table *FrequencyTable
	if spec.By == "" {
		table = countField(t, spec.Field, spec.Derive)
	} else {
		table = crossTab(t, spec.By, spec.Derive, spec.Field)
	}

	table = arrange(table, spec)

	if spec.DropUnknown {
		table = table.Drop(Unknown)
	}
	if spec.Collapse {
		table = table.Collapse()
	}
	if spec.Limit > 0 {
		table = table.Head(spec.Limit)
	}
	return table, nil
}

func arrange(table *FrequencyTable, spec Spec) *FrequencyTable {
	order := spec.Order
	if order == OrderDefault {
		switch {
		case spec.Derive != DeriveNone:
			order = OrderCanonical
		case spec.By == "":
			order = OrderCountDesc
		default:
			order = OrderLabel
		}
	}

	switch order {
	case OrderCountDesc:
		return table.SortByCountDesc()
	case OrderCanonical:
		if canonical := spec.Derive.Order(); canonical != nil {
			return table.Reindex(canonical)
		}
		return table.SortByLabel()
	default:
		return table.SortByLabel()
	}
}

// countField counts labels in first-seen order.
func countField(t *records.Table, field string, derive Derivation) *FrequencyTable {
	values, _ := t.Column(field)

	var labels []string
	counts := make(map[string]int)
	for _, v := range values {
		label, ok := derive.Apply(v)
		if !ok {
			continue
		}
		if _, seen := counts[label]; !seen {
			labels = append(labels, label)
		}
		counts[label]++
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = counts[l]
	}
	return NewSingle(derive.RowField(field), labels, out)
}

// crossTab counts rows where both keys are present.
func crossTab(t *records.Table, group string, derive Derivation, class string) *FrequencyTable {
	groups, _ := t.Column(group)
	classes, _ := t.Column(class)

	var rowLabels, colLabels []string
	rowIdx := make(map[string]int)
	colIdx := make(map[string]int)
	type cell struct{ r, c int }
	counts := make(map[cell]int)

	for i := range groups {
		g, ok := derive.Apply(groups[i])
		if !ok {
			continue
		}
		c, ok := DeriveNone.Apply(classes[i])
		if !ok {
			continue
		}
		r, seen := rowIdx[g]
		if !seen {
			r = len(rowLabels)
			rowIdx[g] = r
			rowLabels = append(rowLabels, g)
		}
		k, seen := colIdx[c]
		if !seen {
			k = len(colLabels)
			colIdx[c] = k
			colLabels = append(colLabels, c)
		}
		counts[cell{r, k}]++
	}

	// Columns are presented in label order
	sortedCols := append([]string(nil), colLabels...)
	sortLabels(sortedCols)

	table := &FrequencyTable{
		RowField:  derive.RowField(group),
		ColField:  class,
		RowLabels: rowLabels,
		ColLabels: sortedCols,
		Counts:    make([][]int, len(rowLabels)),
	}
	for r := range rowLabels {
		table.Counts[r] = make([]int, len(sortedCols))
		for k, label := range sortedCols {
			table.Counts[r][k] = counts[cell{r, colIdx[label]}]
		}
	}
	return table
}
