package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"collisio/internal/document"
	apierrors "collisio/internal/errors"
	"collisio/internal/infrastructure"
	"collisio/internal/middleware"
	"collisio/internal/narrative"
	"collisio/internal/report"
	"collisio/internal/services"
	"collisio/internal/validation"
)

// ReportsPath is where the report routes are mounted; download links are built on it.
const ReportsPath = "/api/reports"

// multipartMemory is how much of an upload is held in memory before spilling to disk
const multipartMemory = 8 << 20

// createReportForm is the validated multipart form of POST /api/reports
type createReportForm struct {
	Title        string   `form:"title" validate:"max=200"`
	Organization string   `form:"organization" validate:"max=200"`
	Formats      []string `form:"formats" validate:"dive,oneof=docx html pdf"`
	Style        string   `form:"style" validate:"omitempty,oneof=basic enhanced advanced"`
	PieMax       int      `form:"pie_max" validate:"omitempty,min=2,max=20"`
	ExportCSV    bool     `form:"csv"`
	RunID        string   `form:"run_id" validate:"omitempty,runid"`
}

// reportResponse is returned once a run has finished
type reportResponse struct {
	RunID    string            `json:"run_id"`
	Status   services.RunStatus `json:"status"`
	Files    map[string]string `json:"files"`
	Tables   int               `json:"tables"`
	Sections int               `json:"sections"`
	Warnings []string          `json:"warnings,omitempty"`
	Stats    report.Stats      `json:"stats"`
	Duration string            `json:"duration"`
}

// runView is a registry entry with its download links
type runView struct {
	*services.Run
	Files map[string]string `json:"files,omitempty"`
}

// ReportHandler serves report generation and downloads
type ReportHandler struct {
	service      ReportServiceInterface
	progress     ProgressPublisher
	uploadDir    string
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewReportHandler creates a report handler. progress may be nil.
func NewReportHandler(service ReportServiceInterface, progress ProgressPublisher, uploadDir string, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ReportHandler {
	if validator == nil {
		validator = middleware.NewValidator()
	}
	return &ReportHandler{
		service:      service,
		progress:     progress,
		uploadDir:    uploadDir,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "report")),
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.With(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/", h.Create)
	r.Route("/{runID}", func(r chi.Router) {
		r.Use(h.RunCtx)
		r.Get("/", h.Get)
		r.Get("/{format}", h.Download)
	})

	return r
}

// RunCtx rejects run IDs that could not have been issued
func (h *ReportHandler) RunCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !infrastructure.ValidRunID(chi.URLParam(r, "runID")) {
			h.errorHandler.HandleError(w, r, apierrors.ErrReportNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Create handles POST /api/reports. Generation is synchronous; progress
// for the run is published to websocket listeners while it runs.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	form, err := parseReportForm(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(form); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file is required"))
		return
	}
	defer file.Close()

	if !validation.IsSpreadsheet(header.Filename) {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedFile)
		return
	}

	runID := form.RunID
	if runID == "" {
		runID = infrastructure.GenerateRunID()
	}
	if _, err := h.service.Runs().Get(runID); err == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrRunExists)
		return
	}

	source, cleanup, err := h.saveUpload(runID, header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to store upload", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrInternalServer)
		return
	}
	defer cleanup()

	h.logger.InfoContext(ctx, "Report requested",
		slog.String("run_id", runID),
		slog.String("file", header.Filename),
		slog.String("size", humanize.Bytes(uint64(header.Size))),
		slog.Any("formats", form.Formats))

	req := services.Request{
		Source:       source,
		Title:        form.Title,
		Organization: form.Organization,
		Style:        narrative.Style(form.Style),
		PieMax:       form.PieMax,
		ExportCSV:    form.ExportCSV,
		RunID:        runID,
	}
	for _, name := range form.Formats {
		f, _ := document.ParseFormat(name)
		req.Formats = append(req.Formats, f)
	}
	if h.progress != nil {
		req.Progress = h.progress.Progress(runID)
	}

	result, err := h.service.Generate(ctx, req)
	if err != nil {
		if h.progress != nil {
			h.progress.Fail(runID, err)
		}
		h.handleGenerateError(w, r, err)
		return
	}

	resp := reportResponse{
		RunID:    result.RunID,
		Status:   services.RunCompleted,
		Files:    make(map[string]string, len(result.Files)),
		Tables:   len(result.Tables),
		Stats:    result.Stats,
		Duration: result.Duration.String(),
	}
	for f := range result.Files {
		resp.Files[string(f)] = downloadLink(result.RunID, string(f))
	}
	if result.Report != nil {
		resp.Sections = len(result.Report.Sections)
		resp.Warnings = result.Report.Warnings
	}

	if h.progress != nil {
		h.progress.Complete(runID, resp)
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// List handles GET /api/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "limit must be a positive number"))
			return
		}
		limit = n
	}

	runs := h.service.Runs().List(limit)
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}

	render.JSON(w, r, map[string]interface{}{
		"runs":  views,
		"count": len(views),
	})
}

// Get handles GET /api/reports/{runID}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Runs().Get(chi.URLParam(r, "runID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrReportNotFound)
		return
	}
	render.JSON(w, r, newRunView(run))
}

// Download handles GET /api/reports/{runID}/{format}
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	f, err := document.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	path, err := h.service.Runs().File(runID, string(f))
	if err != nil {
		h.logger.DebugContext(r.Context(), "Download unavailable",
			slog.String("run_id", runID),
			slog.String("format", string(f)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrReportNotFound)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": filepath.Base(path),
	}))
	http.ServeFile(w, r, path)
}

func (h *ReportHandler) handleGenerateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrLoadFailed):
		h.errorHandler.HandleError(w, r, apierrors.UnreadableSpreadsheetError(err))
	case errors.Is(err, services.ErrNoPrinter):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("formats", err.Error()))
	case errors.Is(err, services.ErrInvalidRunID):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("run_id", err.Error()))
	case errors.Is(err, services.ErrRunExists):
		h.errorHandler.HandleError(w, r, apierrors.ErrRunExists)
	case errors.Is(err, context.Canceled):
		h.logger.InfoContext(r.Context(), "Report request cancelled by client")
	default:
		h.errorHandler.HandleError(w, r, apierrors.ReportFailedError(err))
	}
}

// saveUpload copies the upload into its own directory under uploadDir,
// keeping the client's file name so documents are named after it.
func (h *ReportHandler) saveUpload(runID, filename string, src io.Reader) (string, func(), error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp(h.uploadDir, runID+"-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, sanitizeFilename(filename))
	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		cleanup()
		return "", nil, err
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func parseReportForm(r *http.Request) (createReportForm, error) {
	form := createReportForm{
		Title:        strings.TrimSpace(r.FormValue("title")),
		Organization: strings.TrimSpace(r.FormValue("organization")),
		Style:        strings.ToLower(strings.TrimSpace(r.FormValue("style"))),
		RunID:        strings.TrimSpace(r.FormValue("run_id")),
	}

	for _, raw := range r.MultipartForm.Value["formats"] {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				form.Formats = append(form.Formats, name)
			}
		}
	}

	if raw := r.FormValue("pie_max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return form, apierrors.ErrValidation("pie_max", "pie_max must be a number")
		}
		form.PieMax = n
	}

	if raw := r.FormValue("csv"); raw != "" {
		csv, err := strconv.ParseBool(raw)
		if err != nil {
			return form, apierrors.ErrValidation("csv", "csv must be true or false")
		}
		form.ExportCSV = csv
	}

	return form, nil
}

// sanitizeFilename keeps the base name and replaces anything unusual with '_'
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if strings.Trim(clean, "._") == "" {
		return "upload" + filepath.Ext(name)
	}
	return clean
}

func downloadLink(runID, format string) string {
	return fmt.Sprintf("%s/%s/%s", ReportsPath, runID, format)
}

func newRunView(run *services.Run) runView {
	v := runView{Run: run}
	if len(run.Files) > 0 {
		v.Files = make(map[string]string, len(run.Files))
		for f := range run.Files {
			v.Files[f] = downloadLink(run.ID, f)
		}
	}
	return v
}
