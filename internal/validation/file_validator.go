package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned for a source path that does not exist.
	ErrNotFound = errors.New("file does not exist")
	// ErrUnsupported is returned for extensions other than .xlsx and .csv.
	ErrUnsupported = errors.New("unsupported spreadsheet type")
	// ErrBadContent is returned when the bytes do not match the extension.
	ErrBadContent = errors.New("content does not match file type")
)

// sniffSize is how much of a file is inspected for its content type
const sniffSize = 512

var zipMagic = []byte("PK\x03\x04")

// IsSpreadsheet reports whether name has an extension the loader reads.
func IsSpreadsheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// FileValidator checks input spreadsheets and output directories before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateSpreadsheet checks that path is a readable .xlsx or .csv file whose
// leading bytes agree with its extension.
func (v *FileValidator) ValidateSpreadsheet(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Error("Spreadsheet does not exist", slog.String("file", path))
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Refusing Excel lock file", slog.String("file", path))
		return fmt.Errorf("%s is an Excel lock file: %w", base, ErrUnsupported)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !IsSpreadsheet(path) {
		v.logger.Error("File is not a spreadsheet",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("%s (extension %q): %w", base, ext, ErrUnsupported)
	}

	head, err := readHead(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}

	switch ext {
	case ".xlsx":
		if !bytes.HasPrefix(head, zipMagic) {
			return fmt.Errorf("%s is not an xlsx workbook: %w", base, ErrBadContent)
		}
	case ".csv":
		if bytes.IndexByte(head, 0) >= 0 {
			return fmt.Errorf("%s looks binary, not CSV: %w", base, ErrBadContent)
		}
	}

	v.logger.Debug("Spreadsheet validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
