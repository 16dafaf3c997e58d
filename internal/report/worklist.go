package report

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"collisio/internal/analysis"
	"collisio/internal/chart"
	"collisio/internal/narrative"
	"collisio/internal/records"
)

//go:embed worklist.yaml
var defaultWorklist []byte

// EntryKind distinguishes what an entry produces.
type EntryKind string

const (
	// KindChart aggregates a field and charts it. It is the default.
	KindChart EntryKind = "chart"
	// KindAuto expands into one chart per classifier-selected field.
	KindAuto EntryKind = "auto"
	// KindMap draws the spatial map.
	KindMap EntryKind = "map"
	// KindPlaceholder emits a text-only section.
	KindPlaceholder EntryKind = "placeholder"
)

// Entry is one planned section.
type Entry struct {
	Kind  EntryKind       `yaml:"kind,omitempty" json:"kind,omitempty" validate:"omitempty,oneof=chart auto map placeholder"`
	Title string          `yaml:"title" json:"title" validate:"required"`
	Spec  analysis.Spec   `yaml:"spec,omitempty" json:"spec,omitempty" validate:"-"`
	Chart chart.Kind      `yaml:"chart,omitempty" json:"chart,omitempty" validate:"omitempty,oneof=pie bar stacked_bar"`
	Style narrative.Style `yaml:"style,omitempty" json:"style,omitempty" validate:"omitempty,oneof=basic enhanced advanced"`
	Text  string          `yaml:"text,omitempty" json:"text,omitempty"`
}

// kind returns the entry kind with the default applied.
func (e Entry) kind() EntryKind {
	if e.Kind == "" {
		return KindChart
	}
	return e.Kind
}

// Worklist is the ordered plan of a report.
type Worklist struct {
	Entries []Entry `yaml:"entries" json:"entries" validate:"min=1,dive"`
}

// DefaultWorklist returns the built-in section plan.
func DefaultWorklist() (*Worklist, error) {
	return ParseWorklist(defaultWorklist)
}

// LoadWorklist reads a worklist from a YAML file; an empty path yields the default.
func LoadWorklist(path string) (*Worklist, error) {
	if path == "" {
		return DefaultWorklist()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worklist: %w", err)
	}
	return ParseWorklist(data)
}

// ParseWorklist decodes and validates a YAML worklist.
func ParseWorklist(data []byte) (*Worklist, error) {
	var w Worklist
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse worklist: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Validate checks entry fields, including the aggregation spec of chart entries.
func (w *Worklist) Validate() error {
	v := validator.New()
	if err := v.Struct(w); err != nil {
		return fmt.Errorf("invalid worklist: %w", err)
	}
	for i, e := range w.Entries {
		switch e.kind() {
		case KindChart:
			if err := v.Struct(e.Spec); err != nil {
				return fmt.Errorf("invalid worklist entry %d (%s): %w", i+1, e.Title, err)
			}
		case KindMap:
			if e.Spec.Field == "" {
				return fmt.Errorf("invalid worklist entry %d (%s): map needs spec.field", i+1, e.Title)
			}
		case KindAuto:
			if strings.Count(e.Title, "%s") != 1 {
				return fmt.Errorf("invalid worklist entry %d: auto title must contain one %%s", i+1)
			}
		}
	}
	return nil
}

// Expand replaces each auto entry with one chart entry per field chosen by
// the classifier, leaving out fields any other entry already reads.
func (w *Worklist) Expand(t *records.Table, c analysis.Classifier) []Entry {
	covered := make(map[string]bool)
	for _, e := range w.Entries {
		if k := e.kind(); k == KindChart || k == KindMap {
			for _, f := range e.Spec.Fields() {
				covered[strings.ToLower(f)] = true
			}
		}
	}

	out := make([]Entry, 0, len(w.Entries))
	for _, e := range w.Entries {
		if e.kind() != KindAuto {
			out = append(out, e)
			continue
		}
		for _, field := range c.Classify(t) {
			if covered[strings.ToLower(field)] {
				continue
			}
			covered[strings.ToLower(field)] = true
			out = append(out, Entry{
				Kind:  KindChart,
				Title: fmt.Sprintf(e.Title, field),
				Spec:  analysis.Spec{Field: field, Order: e.Spec.Order, Limit: e.Spec.Limit},
				Chart: e.Chart,
				Style: e.Style,
			})
		}
	}
	return out
}
