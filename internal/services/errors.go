package services

import "errors"

// Report service errors
var (
	// ErrLoadFailed wraps any failure to read the input spreadsheet. It is
	// the only error that stops a run before assembly.
	ErrLoadFailed = errors.New("failed to load spreadsheet")

	// ErrNoSource is returned when a request names no input.
	ErrNoSource = errors.New("no input source")

	// ErrNoPrinter is returned when PDF output is requested without a browser to print it.
	ErrNoPrinter = errors.New("pdf output requires a headless browser")

	// ErrInvalidRunID is returned for caller-supplied run IDs that are not
	// usable as directory names.
	ErrInvalidRunID = errors.New("invalid run id")

	// Run registry errors
	ErrRunNotFound = errors.New("run not found")
	ErrRunExists   = errors.New("run already exists")
	ErrFileMissing = errors.New("format not generated for run")
)
