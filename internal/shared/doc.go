// Package shared holds helpers used across Collisio packages that do not
// belong to a single domain layer.
//
// The testutil subpackage provides:
//
//	- a buffered slog handler for asserting on log output
//	- accident spreadsheet fixtures written with excelize
//
// Example usage:
//
//	func TestLoad(t *testing.T) {
//	    path := testutil.WriteAccidentWorkbook(t, testutil.SampleAccidents())
//	    table, err := records.LoadFile(path)
//	    ...
//	}
package shared
