package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collisio/internal/chart"
	"collisio/internal/config"
	"collisio/internal/document"
	apierrors "collisio/internal/errors"
	"collisio/internal/infrastructure"
	"collisio/internal/middleware"
	"collisio/internal/narrative"
	"collisio/internal/records"
	"collisio/internal/report"
	"collisio/internal/services"
	"collisio/internal/shared/testutil"
)

// MockReportService is a mock implementation of the report service
type MockReportService struct {
	mock.Mock
	runs *services.RunStore
}

func (m *MockReportService) Generate(ctx context.Context, req services.Request) (*services.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Result), args.Error(1)
}

func (m *MockReportService) Runs() *services.RunStore {
	return m.runs
}

// recordingPublisher captures what the handler publishes
type recordingPublisher struct {
	mu        sync.Mutex
	updates   map[string]int
	completed map[string]interface{}
	failed    map[string]error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{
		updates:   make(map[string]int),
		completed: make(map[string]interface{}),
		failed:    make(map[string]error),
	}
}

func (p *recordingPublisher) Progress(runID string) report.Progress {
	return report.ProgressFunc(func(context.Context, report.Update) {
		p.mu.Lock()
		p.updates[runID]++
		p.mu.Unlock()
	})
}

func (p *recordingPublisher) Complete(runID string, data interface{}) {
	p.mu.Lock()
	p.completed[runID] = data
	p.mu.Unlock()
}

func (p *recordingPublisher) Fail(runID string, err error) {
	p.mu.Lock()
	p.failed[runID] = err
	p.mu.Unlock()
}

func newReportRouter(t *testing.T, service ReportServiceInterface, progress ProgressPublisher) (chi.Router, string) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	uploadDir := filepath.Join(t.TempDir(), "uploads")
	errorHandler := apierrors.NewErrorHandler(logger, false)

	h := NewReportHandler(service, progress, uploadDir, middleware.NewValidator(), errorHandler, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount(ReportsPath, h.Routes())
	return r, uploadDir
}

func newRealService(t *testing.T) *services.ReportService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "reports")

	assembler := report.NewAssembler(
		chart.NewPlotRenderer(),
		narrative.Unavailable{Reason: narrative.ErrNoAPIKey},
		nil,
		logger,
	)
	return services.NewReportService(cfg, &records.Loader{}, assembler, &document.Writer{}, infrastructure.NoopMetrics(), logger)
}

// uploadRequest builds a multipart POST with an optional file and form fields
func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, ReportsPath, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestReportHandler_CreateAndDownload(t *testing.T) {
	svc := newRealService(t)
	publisher := newRecordingPublisher()
	router, uploadDir := newReportRouter(t, svc, publisher)

	csvPath := testutil.WriteAccidentCSV(t, testutil.SampleAccidents())
	content, err := os.ReadFile(csvPath)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "Main Street 2024.csv", content, map[string]string{
		"formats": "docx, html",
		"style":   "enhanced",
		"run_id":  "web-run-1",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "web-run-1", body["run_id"])
	assert.Equal(t, "completed", body["status"])
	assert.Positive(t, body["sections"])
	files := body["files"].(map[string]interface{})
	assert.Equal(t, "/api/reports/web-run-1/docx", files["docx"])
	assert.Equal(t, "/api/reports/web-run-1/html", files["html"])

	assert.Positive(t, publisher.updates["web-run-1"])
	assert.Contains(t, publisher.completed, "web-run-1")
	assert.Empty(t, publisher.failed)

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "uploads are removed after the run")

	t.Run("download docx", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/web-run-1/docx", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, document.DOCX.ContentType(), rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "Main_Street_2024.docx")
		assert.Equal(t, []byte("PK"), rec.Body.Bytes()[:2])
	})

	t.Run("format not generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/web-run-1/pdf", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("run details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/web-run-1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		run := decodeBody(t, rec)
		assert.Equal(t, "completed", run["status"])
		assert.Equal(t, "Main_Street_2024.csv", run["source"])
		assert.Len(t, run["files"], 2)
	})

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports?limit=5", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
	})

	t.Run("same run id again", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, uploadRequest(t, "again.csv", content, map[string]string{"run_id": "web-run-1"}))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, apierrors.TypeRunExists, decodeBody(t, rec)["type"])
	})
}

func TestReportHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		fields     map[string]string
		genErr     error
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing file",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unsupported extension",
			filename:   "notes.txt",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeUnsupportedInput,
		},
		{
			name:       "unknown style",
			filename:   "a.csv",
			fields:     map[string]string{"style": "poetic"},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unknown format",
			filename:   "a.csv",
			fields:     map[string]string{"formats": "docx,odt"},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "pie max not a number",
			filename:   "a.csv",
			fields:     map[string]string{"pie_max": "six"},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unsafe run id",
			filename:   "a.csv",
			fields:     map[string]string{"run_id": "../../etc"},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unreadable spreadsheet",
			filename:   "a.xlsx",
			genErr:     fmt.Errorf("%w: %w", services.ErrLoadFailed, errors.New("zip: not a valid zip file")),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeUnreadableInput,
		},
		{
			name:       "pdf without printer",
			filename:   "a.csv",
			genErr:     services.ErrNoPrinter,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "write failure",
			filename:   "a.csv",
			genErr:     errors.New("write docx: disk full"),
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeReportFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockReportService{runs: services.NewRunStore()}
			if tt.genErr != nil {
				svc.On("Generate", mock.Anything, mock.AnythingOfType("services.Request")).Return(nil, tt.genErr)
			}
			publisher := newRecordingPublisher()
			router, _ := newReportRouter(t, svc, publisher)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, tt.filename, []byte("a,b\n1,2\n"), tt.fields))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantType, decodeBody(t, rec)["type"])
			if tt.genErr != nil {
				assert.Len(t, publisher.failed, 1, "listeners learn about the failure")
			} else {
				svc.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestReportHandler_RequestMapping(t *testing.T) {
	svc := &MockReportService{runs: services.NewRunStore()}
	svc.On("Generate", mock.Anything, mock.MatchedBy(func(req services.Request) bool {
		return req.RunID == "mapped" &&
			req.Title == "Ward 5" &&
			req.Style == narrative.Advanced &&
			req.PieMax == 4 &&
			req.ExportCSV &&
			assert.ObjectsAreEqual([]document.Format{document.HTML, document.PDF}, req.Formats) &&
			filepath.Base(req.Source) == "ward_5.xlsx" &&
			req.Progress == nil
	})).Return(&services.Result{
		RunID: "mapped",
		Files: map[document.Format]string{document.HTML: "/tmp/x.html"},
	}, nil)

	router, _ := newReportRouter(t, svc, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, `C:\data\ward 5.xlsx`, []byte("PK"), map[string]string{
		"title":   " Ward 5 ",
		"style":   "Advanced",
		"pie_max": "4",
		"csv":     "true",
		"formats": "HTML,pdf",
		"run_id":  "mapped",
	}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestReportHandler_RejectsNonMultipart(t *testing.T) {
	router, _ := newReportRouter(t, &MockReportService{runs: services.NewRunStore()}, nil)

	req := httptest.NewRequest(http.MethodPost, ReportsPath, bytes.NewBufferString(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestReportHandler_Lookups(t *testing.T) {
	runs := services.NewRunStore()
	require.NoError(t, runs.Create(&services.Run{ID: "busy", Status: services.RunRunning}))
	router, _ := newReportRouter(t, &MockReportService{runs: runs}, nil)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/api/reports/missing", http.StatusNotFound},
		{"/api/reports/bad_id/docx", http.StatusNotFound},
		{"/api/reports/busy/docx", http.StatusNotFound},
		{"/api/reports/busy/odt", http.StatusBadRequest},
		{"/api/reports/busy", http.StatusOK},
		{"/api/reports?limit=0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"accidents.xlsx":          "accidents.xlsx",
		"Main Street 2024.csv":    "Main_Street_2024.csv",
		`C:\Users\me\crash.xlsx`: "crash.xlsx",
		"../../etc/passwd.csv":    "passwd.csv",
		"données.csv":             "donn_es.csv",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
