// Package document writes an assembled report as DOCX, HTML or PDF.
package document

import (
	"context"
	"fmt"
	"io"
	"strings"

	"collisio/internal/report"
)

// Format is an output document format.
type Format string

const (
	DOCX Format = "docx"
	HTML Format = "html"
	PDF  Format = "pdf"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case DOCX, HTML, PDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown document format %q", s)
}

// Ext is the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case DOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case HTML:
		return "text/html; charset=utf-8"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Writer serialises reports. PDF output needs a Printer.
type Writer struct {
	Printer Printer
}

// Printer converts an HTML document to PDF.
type Printer interface {
	Print(ctx context.Context, html []byte) ([]byte, error)
}

// Write renders r in format f to w.
func (d *Writer) Write(ctx context.Context, f Format, w io.Writer, r *report.Report) error {
	switch f {
	case DOCX:
		return WriteDOCX(w, r)
	case HTML:
		return WriteHTML(w, r)
	case PDF:
		if d.Printer == nil {
			return fmt.Errorf("pdf output requires a printer")
		}
		return WritePDF(ctx, d.Printer, w, r)
	}
	return fmt.Errorf("unknown document format %q", f)
}
