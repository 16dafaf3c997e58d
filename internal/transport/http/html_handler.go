package http

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	apierrors "collisio/internal/errors"
	"collisio/internal/records"
)

//go:embed templates/upload.html
var pages embed.FS

var uploadPage = template.Must(template.ParseFS(pages, "templates/upload.html"))

// PageData is passed to the upload page template
type PageData struct {
	Title        string
	Organization string
	Formats      []string
	PDF          bool
}

// ServeUploadPage serves GET /. An index.html in webDir replaces the built-in page.
func ServeUploadPage(webDir string, data PageData, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl := uploadPage
		if webDir != "" {
			custom := filepath.Join(webDir, "index.html")
			if _, err := os.Stat(custom); err == nil {
				parsed, err := template.ParseFiles(custom)
				if err != nil {
					logger.ErrorContext(r.Context(), "Failed to parse custom page",
						slog.String("path", custom),
						slog.String("error", err.Error()))
					http.Error(w, "Error loading page", http.StatusInternalServerError)
					return
				}
				tmpl = parsed
			}
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			logger.ErrorContext(r.Context(), "Failed to render page", slog.String("error", err.Error()))
			http.Error(w, "Error rendering page", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(buf.Bytes())
	}
}

// ServeTemplate serves GET /api/template, the blank workbook operators fill in
func ServeTemplate(errorHandler *apierrors.ErrorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := records.WriteTemplate(&buf); err != nil {
			errorHandler.HandleError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+records.TemplateFilename+`"`)
		w.Write(buf.Bytes())
	}
}
