package services

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collisio/internal/chart"
	"collisio/internal/config"
	"collisio/internal/document"
	"collisio/internal/exporter"
	"collisio/internal/infrastructure"
	"collisio/internal/narrative"
	"collisio/internal/records"
	"collisio/internal/report"
	"collisio/internal/shared/testutil"
)

type mockProgress struct {
	mock.Mock
}

func (m *mockProgress) Report(ctx context.Context, u report.Update) {
	m.Called(ctx, u)
}

type fakePrinter struct{}

func (fakePrinter) Print(context.Context, []byte) ([]byte, error) {
	return []byte("%PDF-1.4 fake"), nil
}

func newTestService(t *testing.T, printer document.Printer) (*ReportService, *config.Config) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "reports")
	cfg.Paths.UploadDir = filepath.Join(t.TempDir(), "uploads")

	assembler := report.NewAssembler(
		chart.NewPlotRenderer(),
		narrative.Unavailable{Reason: narrative.ErrNoAPIKey},
		nil,
		logger,
	)
	svc := NewReportService(cfg, &records.Loader{}, assembler, &document.Writer{Printer: printer}, infrastructure.NoopMetrics(), logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }
	return svc, cfg
}

func TestReportService_Generate(t *testing.T) {
	svc, cfg := newTestService(t, nil)
	source := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	result, err := svc.Generate(context.Background(), Request{
		Source:    source,
		Formats:   []document.Format{document.DOCX, document.HTML, document.DOCX},
		RunID:     "run1",
		ExportCSV: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "run1", result.RunID)
	assert.Equal(t, cfg.Paths.RunDir("run1"), result.Dir)
	assert.Len(t, result.Files, 2, "duplicate formats are written once")

	name := filepath.Base(source[:len(source)-len(filepath.Ext(source))])
	assert.Equal(t, filepath.Join(result.Dir, name+".docx"), result.Files[document.DOCX])
	assert.Equal(t, filepath.Join(result.Dir, name+".html"), result.Files[document.HTML])
	for _, path := range result.Files {
		assert.FileExists(t, path)
	}

	// 13 chart sections and the diagrams placeholder; no map builder is wired
	assert.Equal(t, 14, result.Stats.Emitted)
	assert.Equal(t, 13, result.Stats.NarrativeFailures)
	assert.Len(t, result.Report.Sections, 14)
	assert.Equal(t, "Collision Analysis Report", result.Report.Title)
	assert.Equal(t, "Prepared automatically by Mobility Edge Solution", result.Report.Preparer)

	require.NotEmpty(t, result.Tables)
	assert.Equal(t, filepath.Join(result.Dir, exporter.AppendixName), result.Tables[0])
	assert.Len(t, result.Tables, 1+13, "appendix plus one csv per section with a table")

	zr, err := zip.OpenReader(result.Files[document.DOCX])
	require.NoError(t, err)
	defer zr.Close()
	var media int
	for _, f := range zr.File {
		if filepath.Dir(f.Name) == "word/media" {
			media++
		}
	}
	assert.Equal(t, 13, media)

	run, err := svc.Runs().Get("run1")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, run.Status)
	assert.Equal(t, 14, run.Sections)
	assert.Equal(t, filepath.Base(source), run.Source)
	assert.False(t, run.CompletedAt.IsZero())

	path, err := svc.Runs().File("run1", "html")
	require.NoError(t, err)
	assert.Equal(t, result.Files[document.HTML], path)
}

func TestReportService_Generate_DefaultsFromConfig(t *testing.T) {
	svc, cfg := newTestService(t, nil)
	svc.cfg.Title = "Ward 5 Collisions"
	svc.cfg.Organization = "City Traffic Office"
	source := testutil.WriteAccidentCSV(t, testutil.SampleAccidents())

	result, err := svc.Generate(context.Background(), Request{Source: source, Organization: "Override Org"})
	require.NoError(t, err)

	assert.Len(t, result.RunID, 8)
	assert.Equal(t, cfg.Paths.RunDir(result.RunID), result.Dir)
	assert.Equal(t, []document.Format{document.DOCX}, keys(result.Files))
	assert.Equal(t, "Ward 5 Collisions", result.Report.Title)
	assert.Equal(t, "Prepared automatically by Override Org", result.Report.Preparer)
	assert.Len(t, result.Tables, 1, "csv export is off by default")
}

func TestReportService_Generate_LoadFailure(t *testing.T) {
	svc, cfg := newTestService(t, nil)

	missing := filepath.Join(t.TempDir(), "nope.xlsx")
	_, err := svc.Generate(context.Background(), Request{Source: missing, RunID: "bad"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.True(t, IsLoadFailure(err))

	_, statErr := os.Stat(cfg.Paths.RunDir("bad"))
	assert.True(t, os.IsNotExist(statErr), "no partial output is written")

	run, err := svc.Runs().Get("bad")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	_, err = svc.Runs().File("bad", "docx")
	assert.ErrorIs(t, err, ErrFileMissing)
}

func TestReportService_Generate_UnsupportedExtension(t *testing.T) {
	svc, _ := newTestService(t, nil)
	path := filepath.Join(t.TempDir(), "accidents.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	_, err := svc.Generate(context.Background(), Request{Source: path})
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, records.ErrUnsupportedFormat)
}

func TestReportService_Generate_RequestValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = svc.Generate(context.Background(), Request{Source: "x.xlsx", Formats: []document.Format{document.PDF}})
	assert.ErrorIs(t, err, ErrNoPrinter)
	assert.Empty(t, svc.Runs().List(0), "rejected requests are not registered")
}

func TestReportService_Generate_PDF(t *testing.T) {
	svc, _ := newTestService(t, fakePrinter{})
	source := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	result, err := svc.Generate(context.Background(), Request{Source: source, Formats: []document.Format{document.PDF}})
	require.NoError(t, err)

	data, err := os.ReadFile(result.Files[document.PDF])
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestReportService_Generate_DuplicateRunID(t *testing.T) {
	svc, _ := newTestService(t, nil)
	source := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	_, err := svc.Generate(context.Background(), Request{Source: source, RunID: "same"})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), Request{Source: source, RunID: "same"})
	assert.ErrorIs(t, err, ErrRunExists)
}

func TestReportService_Generate_Progress(t *testing.T) {
	svc, _ := newTestService(t, nil)
	source := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	progress := &mockProgress{}
	progress.On("Report", mock.Anything, mock.Anything).Return()

	_, err := svc.Generate(context.Background(), Request{
		Source:   source,
		Formats:  []document.Format{document.DOCX, document.HTML},
		Progress: progress,
	})
	require.NoError(t, err)

	progress.AssertCalled(t, "Report", mock.Anything, mock.MatchedBy(func(u report.Update) bool {
		return u.Stage == report.StageDone && u.Percent == 100
	}))

	var writes []string
	for _, call := range progress.Calls {
		if u := call.Arguments.Get(1).(report.Update); u.Stage == report.StageWrite {
			writes = append(writes, u.Message)
		}
	}
	assert.Equal(t, []string{"docx", "html"}, writes)
}

func TestReportService_Generate_Cancelled(t *testing.T) {
	svc, _ := newTestService(t, nil)
	source := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, Request{Source: source, RunID: "cancelled"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	run, err := svc.Runs().Get("cancelled")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
}

func TestReportService_Generate_CustomWorklist(t *testing.T) {
	svc, _ := newTestService(t, nil)
	source := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	wl, err := report.ParseWorklist([]byte(`
entries:
  - title: Light Conditions
    spec: {field: Light}
    chart: pie
  - title: Notes
    kind: placeholder
    text: Field notes follow.
`))
	require.NoError(t, err)

	result, err := svc.Generate(context.Background(), Request{Source: source, Worklist: wl, PieMax: 2})
	require.NoError(t, err)
	require.Len(t, result.Report.Sections, 2)
	assert.Equal(t, chart.Bar, result.Report.Sections[0].Chart, "four light values exceed a pie max of 2")
	assert.Equal(t, "Field notes follow.", result.Report.Sections[1].Text())
}

func TestReportService_Columns(t *testing.T) {
	svc, _ := newTestService(t, nil)
	source := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())

	cr, err := svc.Columns(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 12, cr.Rows)
	assert.Len(t, cr.Profiles, len(testutil.AccidentHeaders))
	assert.Contains(t, cr.Categorical, "Classification Of Accident")
	assert.Contains(t, cr.Categorical, "Light")
	assert.NotContains(t, cr.Categorical, "Latitude")
	assert.Equal(t, "Latitude", cr.Latitude)
	assert.Equal(t, "Longitude", cr.Longitude)

	_, err = svc.Columns(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrLoadFailed)
}

func TestDocumentName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"/data/accidents-2024.xlsx", "accidents-2024"},
		{"collisions.csv", "collisions"},
		{"gsheet://abc123/Sheet1!A1:Z", DefaultDocumentName},
		{".xlsx", DefaultDocumentName},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, documentName(tt.source))
		})
	}
}

func keys(m map[document.Format]string) []document.Format {
	out := make([]document.Format, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
