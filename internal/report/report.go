// Package report assembles a collision report: it walks a worklist of
// planned sections, aggregates each one, renders its chart, asks for its
// narrative and numbers the sections that survive.
package report

import (
	"fmt"
	"sync"
	"time"

	"collisio/internal/analysis"
	"collisio/internal/chart"
	"collisio/internal/narrative"
)

// DefaultTitle is the front-matter title of a report.
const DefaultTitle = "Collision Analysis Report"

// SectionKind mirrors the entry that produced a section.
type SectionKind string

const (
	SectionChart       SectionKind = "chart"
	SectionMap         SectionKind = "map"
	SectionPlaceholder SectionKind = "placeholder"
)

// Section is one numbered unit of the report.
type Section struct {
	Ordinal   int                      `json:"ordinal"`
	Kind      SectionKind              `json:"kind"`
	Title     string                   `json:"title"`
	Chart     chart.Kind               `json:"chart,omitempty"`
	Image     []byte                   `json:"-"`
	Table     *analysis.FrequencyTable `json:"-"`
	Hotspots  *analysis.FrequencyTable `json:"-"`
	Narrative narrative.Result         `json:"-"`
	Body      string                   `json:"body,omitempty"`
}

// Heading is the section heading line.
func (s Section) Heading() string {
	return fmt.Sprintf("Section %d: %s", s.Ordinal, s.Title)
}

// Caption is the figure caption under the section image.
func (s Section) Caption() string {
	return fmt.Sprintf("Figure %d: %s", s.Ordinal, s.Title)
}

// HasFigure reports whether the section carries an image.
func (s Section) HasFigure() bool {
	return len(s.Image) > 0
}

// Text is the paragraph printed under the figure: the narrative, its
// failure placeholder, or the body of a placeholder section.
func (s Section) Text() string {
	if s.Kind == SectionPlaceholder {
		return s.Body
	}
	return s.Narrative.Display()
}

// Report is the assembled document model.
type Report struct {
	Title       string    `json:"title"`
	Preparer    string    `json:"preparer"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// Preparer formats the "prepared by" line for an organisation.
func Preparer(organization string) string {
	return "Prepared automatically by " + organization
}

// Builder accumulates sections and owns their numbering. Ordinals start at
// 1 and advance only when a section is added.
type Builder struct {
	mu     sync.Mutex
	report Report
	next   int
	closed bool
}

// NewBuilder starts a report.
func NewBuilder(title, organization string, generatedAt time.Time) *Builder {
	if title == "" {
		title = DefaultTitle
	}
	return &Builder{
		report: Report{
			Title:       title,
			Preparer:    Preparer(organization),
			GeneratedAt: generatedAt,
		},
		next: 1,
	}
}

// Add numbers s and appends it, returning the numbered section.
func (b *Builder) Add(s Section) Section {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("report: Add after Report")
	}
	s.Ordinal = b.next
	b.next++
	b.report.Sections = append(b.report.Sections, s)
	return s
}

// Warn records a problem that did not stop the report.
func (b *Builder) Warn(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.report.Warnings = append(b.report.Warnings, fmt.Sprintf(format, args...))
}

// Len returns the number of sections added so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.report.Sections)
}

// Report closes the builder and returns the finished report.
func (b *Builder) Report() *Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	r := b.report
	return &r
}
