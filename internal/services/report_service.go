package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"collisio/internal/analysis"
	"collisio/internal/config"
	"collisio/internal/document"
	"collisio/internal/exporter"
	"collisio/internal/infrastructure"
	"collisio/internal/narrative"
	"collisio/internal/records"
	"collisio/internal/report"
	"collisio/internal/spatial"
)

// DefaultDocumentName is used when the source has no usable file name.
const DefaultDocumentName = "report"

// Request describes one report run. Zero fields fall back to configuration.
type Request struct {
	Source       string
	Title        string
	Organization string
	Formats      []document.Format
	Style        narrative.Style
	PieMax       int
	Worklist     *report.Worklist
	ExportCSV    bool
	Progress     report.Progress
	RunID        string
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string                     `json:"run_id"`
	Dir      string                     `json:"-"`
	Report   *report.Report             `json:"-"`
	Files    map[document.Format]string `json:"files"`
	Tables   []string                   `json:"tables"`
	Stats    report.Stats               `json:"stats"`
	Duration time.Duration              `json:"duration"`
}

// ColumnReport describes a spreadsheet for operators deciding what to chart.
type ColumnReport struct {
	Rows        int               `json:"rows"`
	Profiles    []records.Profile `json:"profiles"`
	Categorical []string          `json:"categorical"`
	Latitude    string            `json:"latitude,omitempty"`
	Longitude   string            `json:"longitude,omitempty"`
}

// ReportService generates reports from spreadsheets
type ReportService struct {
	cfg       config.ReportConfig
	paths     config.PathsConfig
	loader    *records.Loader
	assembler *report.Assembler
	writer    *document.Writer
	runs      *RunStore
	metrics   *infrastructure.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewReportService creates a report service. The assembler's classifier is
// bounded by the configured distinct-value limits.
func NewReportService(cfg *config.Config, loader *records.Loader, assembler *report.Assembler, writer *document.Writer, metrics *infrastructure.Metrics, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = &records.Loader{}
	}
	if writer == nil {
		writer = &document.Writer{}
	}
	assembler.Classifier = analysis.Classifier{
		MinDistinct: cfg.Report.MinDistinct,
		MaxDistinct: cfg.Report.MaxDistinct,
	}

	return &ReportService{
		cfg:       cfg.Report,
		paths:     cfg.Paths,
		loader:    loader,
		assembler: assembler,
		writer:    writer,
		runs:      NewRunStore(),
		metrics:   metrics,
		logger:    logger.With(slog.String("service", "report")),
		now:       time.Now,
	}
}

// Runs exposes the run registry
func (s *ReportService) Runs() *RunStore {
	return s.runs
}

// Generate produces every requested document for req.Source. A spreadsheet
// that cannot be read yields ErrLoadFailed and writes nothing.
func (s *ReportService) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Source == "" {
		return nil, ErrNoSource
	}
	formats, err := s.formats(req.Formats)
	if err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = infrastructure.GenerateRunID()
	} else if !infrastructure.ValidRunID(runID) {
		return nil, ErrInvalidRunID
	}
	ctx = infrastructure.WithRunID(infrastructure.EnsureTraceID(ctx), runID)
	logger := s.logger.With(slog.String("run_id", runID))

	start := time.Now()
	if err := s.runs.Create(&Run{
		ID:        runID,
		Source:    sourceName(req.Source),
		Status:    RunRunning,
		Dir:       s.paths.RunDir(runID),
		CreatedAt: start,
	}); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Report run started",
		slog.String("source", req.Source),
		slog.Any("formats", formats))

	result, err := s.generate(ctx, runID, formats, req, logger)
	elapsed := time.Since(start)

	var stats report.Stats
	if result != nil {
		stats = result.Stats
	}
	s.metrics.RecordRun(ctx, elapsed, stats.Emitted, stats.Skipped, stats.NarrativeFailures, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		_ = s.runs.Update(runID, func(r *Run) {
			r.Status = RunFailed
			r.Error = err.Error()
			r.CompletedAt = time.Now()
		})
		logger.ErrorContext(ctx, "Report run failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed))
		return nil, err
	}

	result.Duration = elapsed
	_ = s.runs.Update(runID, func(r *Run) {
		r.Status = RunCompleted
		r.Sections = len(result.Report.Sections)
		r.Warnings = len(result.Report.Warnings)
		r.Files = make(map[string]string, len(result.Files))
		for f, path := range result.Files {
			r.Files[string(f)] = path
		}
		r.CompletedAt = time.Now()
	})

	logger.InfoContext(ctx, "Report run completed",
		slog.Int("sections", stats.Emitted),
		slog.Int("skipped", stats.Skipped),
		slog.Int("narrative_failures", stats.NarrativeFailures),
		slog.Int("warnings", len(result.Report.Warnings)),
		slog.Duration("duration", elapsed))

	return result, nil
}

func (s *ReportService) generate(ctx context.Context, runID string, formats []document.Format, req Request, logger *slog.Logger) (*Result, error) {
	t, err := s.loader.Load(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	logger.InfoContext(ctx, "Spreadsheet loaded",
		slog.String("rows", humanize.Comma(int64(t.Len()))),
		slog.Int("columns", len(t.Columns())))

	worklist := req.Worklist
	if worklist == nil {
		if worklist, err = s.worklist(); err != nil {
			return nil, err
		}
	}

	title := firstNonEmpty(req.Title, s.cfg.Title)
	org := firstNonEmpty(req.Organization, s.cfg.Organization)
	builder := report.NewBuilder(title, org, s.now())

	// One assembler copy per run; concurrent web requests share s.assembler.
	assembler := *s.assembler
	assembler.Progress = req.Progress
	assembler.PieMax = s.cfg.PieMax
	if req.PieMax > 0 {
		assembler.PieMax = req.PieMax
	}
	if req.Style != "" {
		assembler.DefaultStyle = req.Style
	}

	stats, err := assembler.Assemble(ctx, t, worklist, builder)
	if err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}
	r := builder.Report()

	dir := s.paths.RunDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	result := &Result{
		RunID:  runID,
		Dir:    dir,
		Report: r,
		Files:  make(map[document.Format]string, len(formats)),
		Stats:  stats,
	}

	name := documentName(req.Source)
	for _, f := range formats {
		if req.Progress != nil {
			req.Progress.Report(ctx, report.Update{Stage: report.StageWrite, Percent: 100, Message: string(f)})
		}
		path := filepath.Join(dir, name+f.Ext())
		if err := s.writeDocument(ctx, f, path, r); err != nil {
			return nil, err
		}
		result.Files[f] = path
		logger.InfoContext(ctx, "Document written",
			slog.String("format", string(f)),
			slog.String("path", path),
			slog.String("size", fileSize(path)))
	}

	tables, err := exporter.New(dir).Export(r, req.ExportCSV || s.cfg.ExportCSV)
	if err != nil {
		return nil, fmt.Errorf("export tables: %w", err)
	}
	result.Tables = tables

	return result, nil
}

func (s *ReportService) writeDocument(ctx context.Context, f document.Format, path string, r *report.Report) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	if err := s.writer.Write(ctx, f, out, r); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", f, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}

// Columns loads source and reports what the classifier would chart.
func (s *ReportService) Columns(ctx context.Context, source string) (*ColumnReport, error) {
	if source == "" {
		return nil, ErrNoSource
	}
	t, err := s.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	cr := &ColumnReport{
		Rows:        t.Len(),
		Profiles:    t.Profiles(),
		Categorical: s.assembler.Classifier.Classify(t),
	}
	if lat, lon, err := spatial.CoordinateColumns(t); err == nil {
		cr.Latitude, cr.Longitude = lat, lon
	}
	return cr, nil
}

// formats resolves requested formats, defaulting to configuration.
func (s *ReportService) formats(requested []document.Format) ([]document.Format, error) {
	if len(requested) == 0 {
		for _, name := range s.cfg.Formats {
			f, err := document.ParseFormat(name)
			if err != nil {
				return nil, err
			}
			requested = append(requested, f)
		}
	}

	seen := make(map[document.Format]bool, len(requested))
	out := make([]document.Format, 0, len(requested))
	for _, f := range requested {
		if seen[f] {
			continue
		}
		seen[f] = true
		if f == document.PDF && s.writer.Printer == nil {
			return nil, ErrNoPrinter
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *ReportService) worklist() (*report.Worklist, error) {
	if s.cfg.Worklist == "" {
		return report.DefaultWorklist()
	}
	w, err := report.LoadWorklist(s.cfg.Worklist)
	if err != nil {
		return nil, fmt.Errorf("load worklist %s: %w", s.cfg.Worklist, err)
	}
	return w, nil
}

func sourceName(source string) string {
	if strings.HasPrefix(source, records.SheetsScheme) {
		return source
	}
	return filepath.Base(source)
}

// documentName derives output file names from the input file name.
func documentName(source string) string {
	if strings.HasPrefix(source, records.SheetsScheme) {
		return DefaultDocumentName
	}
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return DefaultDocumentName
	}
	return name
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown"
	}
	return humanize.Bytes(uint64(info.Size()))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsLoadFailure reports whether err came from reading the input.
func IsLoadFailure(err error) bool {
	return errors.Is(err, ErrLoadFailed)
}
