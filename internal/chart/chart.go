// Package chart renders frequency tables as PNG pie, bar and stacked-bar
// charts using gonum/plot.
package chart

import (
	"context"
	"errors"
	"fmt"

	"collisio/internal/analysis"
)

// Kind is the shape of a rendered chart.
type Kind string

const (
	Pie        Kind = "pie"
	Bar        Kind = "bar"
	StackedBar Kind = "stacked_bar"
)

// DefaultPieMax is the largest category count still drawn as a pie.
const DefaultPieMax = 6

// ErrEmptyTable is returned when asked to draw a table with nothing in it.
var ErrEmptyTable = errors.New("nothing to chart")

// Valid reports whether k is a known chart kind.
func (k Kind) Valid() bool {
	return k == Pie || k == Bar || k == StackedBar
}

// Choose resolves the kind to draw. A cross-tabulation is always a stacked
// bar; a pie is honoured only up to pieMax categories.
func Choose(requested Kind, table *analysis.FrequencyTable, pieMax int) Kind {
	if pieMax <= 0 {
		pieMax = DefaultPieMax
	}
	switch {
	case table.IsCrossTab():
		return StackedBar
	case requested == Pie && table.Len() <= pieMax:
		return Pie
	default:
		return Bar
	}
}

// Request is one chart to render.
type Request struct {
	Kind  Kind
	Title string
	Table *analysis.FrequencyTable
}

// Renderer turns a request into encoded image bytes.
type Renderer interface {
	Render(ctx context.Context, req Request) ([]byte, error)
}

func (r Request) validate() error {
	if r.Table == nil || r.Table.Empty() {
		return ErrEmptyTable
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown chart kind %q", r.Kind)
	}
	if r.Kind == Pie && r.Table.IsCrossTab() {
		return fmt.Errorf("cannot draw a cross-tabulation as a pie")
	}
	return nil
}
