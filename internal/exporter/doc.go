// Package exporter writes the frequency tables behind a report as an
// analyst appendix.
//
// It has two parts:
//
// CSVWriter: Core CSV writing with headers and a UTF-8 BOM for Excel
// compatibility. Each section's table becomes one CSV file.
//
// WorkbookWriter: Builds a single .xlsx workbook with a summary sheet and
// one sheet per section.
//
// Example usage:
//
//	exp := exporter.New(runDir)
//	files, err := exp.Export(rep)
package exporter
