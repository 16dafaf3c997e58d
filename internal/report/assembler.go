package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"collisio/internal/analysis"
	"collisio/internal/chart"
	"collisio/internal/narrative"
	"collisio/internal/records"
	"collisio/internal/spatial"
)

// TracerName names the tracer of section spans.
const TracerName = "collisio.report"

// MapBuilder draws the spatial section.
type MapBuilder interface {
	Build(ctx context.Context, t *records.Table, classField string) (*spatial.Map, error)
}

// Stats summarises one assembly.
type Stats struct {
	Emitted           int `json:"emitted"`
	Skipped           int `json:"skipped"`
	NarrativeFailures int `json:"narrative_failures"`
}

// Assembler turns a worklist into report sections.
type Assembler struct {
	Classifier   analysis.Classifier
	Charts       chart.Renderer
	Narratives   narrative.Service
	Maps         MapBuilder
	PieMax       int
	DefaultStyle narrative.Style
	Progress     Progress

	tracer trace.Tracer
	logger *slog.Logger
}

// NewAssembler wires an assembler with default classifier bounds. maps may be nil.
func NewAssembler(charts chart.Renderer, narratives narrative.Service, maps MapBuilder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		Classifier:   analysis.DefaultClassifier(),
		Charts:       charts,
		Narratives:   narratives,
		Maps:         maps,
		PieMax:       chart.DefaultPieMax,
		DefaultStyle: narrative.Basic,
		tracer:       otel.Tracer(TracerName),
		logger:       logger.With(slog.String("component", "assembler")),
	}
}

// Assemble processes the worklist in order, adding every section that
// survives to b. Only context cancellation stops it early.
func (a *Assembler) Assemble(ctx context.Context, t *records.Table, w *Worklist, b *Builder) (Stats, error) {
	var stats Stats
	if a.tracer == nil {
		a.tracer = otel.Tracer(TracerName)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	progress := a.Progress
	if progress == nil {
		progress = noProgress{}
	}

	entries := w.Expand(t, a.Classifier)
	a.logger.InfoContext(ctx, "Assembling report",
		slog.Int("entries", len(entries)),
		slog.Int("rows", t.Len()))

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		progress.Report(ctx, Update{
			Stage:   StageAggregate,
			Section: e.Title,
			Percent: i * 100 / len(entries),
		})

		added, narrFailed := a.runEntry(ctx, t, e, b, progress)
		if added {
			stats.Emitted++
		} else {
			stats.Skipped++
		}
		if narrFailed {
			stats.NarrativeFailures++
		}
	}

	progress.Report(ctx, Update{Stage: StageDone, Percent: 100,
		Message: fmt.Sprintf("%d sections", stats.Emitted)})
	return stats, ctx.Err()
}

func (a *Assembler) runEntry(ctx context.Context, t *records.Table, e Entry, b *Builder, progress Progress) (added, narrFailed bool) {
	ctx, span := a.tracer.Start(ctx, "report.section",
		trace.WithAttributes(
			attribute.String("section.title", e.Title),
			attribute.String("section.kind", string(e.kind())),
		))
	defer span.End()

	var (
		section Section
		ok      bool
	)
	switch e.kind() {
	case KindPlaceholder:
		section, ok = Section{Kind: SectionPlaceholder, Title: e.Title, Body: e.Text}, true
	case KindMap:
		section, ok = a.mapSection(ctx, t, e, b)
	default:
		section, ok = a.chartSection(ctx, t, e, b, progress)
	}
	if !ok {
		span.SetAttributes(attribute.Bool("section.skipped", true))
		return false, false
	}

	if section.Kind != SectionPlaceholder {
		progress.Report(ctx, Update{Stage: StageNarrative, Section: e.Title})
		section.Narrative = a.narrate(ctx, e, section.Table)
		if !section.Narrative.OK() {
			narrFailed = true
			span.AddEvent("narrative failed", trace.WithAttributes(
				attribute.String("error", section.Narrative.Err.Error())))
		}
	}

	section = b.Add(section)
	span.SetAttributes(attribute.Int("section.ordinal", section.Ordinal))
	a.logger.DebugContext(ctx, "Section added",
		slog.Int("ordinal", section.Ordinal),
		slog.String("title", section.Title))
	return true, narrFailed
}

func (a *Assembler) chartSection(ctx context.Context, t *records.Table, e Entry, b *Builder, progress Progress) (Section, bool) {
	table, err := analysis.Aggregate(t, e.Spec)
	if err != nil {
		if !errors.Is(err, analysis.ErrMissingField) {
			b.Warn("%s: %v", e.Title, err)
			a.logger.WarnContext(ctx, "Aggregation failed",
				slog.String("title", e.Title), slog.String("error", err.Error()))
		}
		return Section{}, false
	}
	if trivial(table) {
		a.logger.DebugContext(ctx, "Skipping trivial section", slog.String("title", e.Title))
		return Section{}, false
	}

	kind := chart.Choose(e.Chart, table, a.PieMax)
	progress.Report(ctx, Update{Stage: StageRender, Section: e.Title})
	img, err := a.Charts.Render(ctx, chart.Request{Kind: kind, Title: e.Title, Table: table})
	if err != nil {
		b.Warn("%s: chart not rendered: %v", e.Title, err)
		trace.SpanFromContext(ctx).SetStatus(codes.Error, err.Error())
		a.logger.WarnContext(ctx, "Chart rendering failed",
			slog.String("title", e.Title), slog.String("error", err.Error()))
		return Section{}, false
	}

	return Section{Kind: SectionChart, Title: e.Title, Chart: kind, Image: img, Table: table}, true
}

func (a *Assembler) mapSection(ctx context.Context, t *records.Table, e Entry, b *Builder) (Section, bool) {
	if a.Maps == nil {
		return Section{}, false
	}
	m, err := a.Maps.Build(ctx, t, e.Spec.Field)
	switch {
	case errors.Is(err, spatial.ErrNoCoordinateColumns):
		return Section{}, false
	case errors.Is(err, spatial.ErrNoValidPoints):
		b.Warn("%s: no valid coordinates, map omitted", e.Title)
		a.logger.WarnContext(ctx, "No valid coordinates for map", slog.String("error", err.Error()))
		return Section{}, false
	case err != nil:
		b.Warn("%s: map not rendered: %v", e.Title, err)
		a.logger.WarnContext(ctx, "Map rendering failed", slog.String("error", err.Error()))
		return Section{}, false
	}

	if m.Rejected > 0 {
		a.logger.InfoContext(ctx, "Rows without valid coordinates left off the map", slog.Int("rejected", m.Rejected))
	}
	return Section{
		Kind:     SectionMap,
		Title:    e.Title,
		Image:    m.Image,
		Table:    m.Categories,
		Hotspots: m.Hotspots,
	}, true
}

func (a *Assembler) narrate(ctx context.Context, e Entry, table *analysis.FrequencyTable) narrative.Result {
	style := e.Style
	if style == "" {
		style = a.DefaultStyle
	}
	if a.Narratives == nil {
		return narrative.Failure(narrative.ErrDisabled)
	}
	return a.Narratives.Summarize(ctx, narrative.Request{Title: e.Title, Style: style, Table: table})
}

// trivial reports whether a table has too little in it to chart: fewer than
// two non-empty categories for a single field, nothing at all for a cross-tab.
func trivial(table *analysis.FrequencyTable) bool {
	if table.IsCrossTab() {
		return table.Empty()
	}
	categories := 0
	for _, total := range table.RowTotals() {
		if total > 0 {
			categories++
		}
	}
	return categories < 2
}
