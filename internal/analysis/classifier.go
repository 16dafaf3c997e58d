package analysis

import (
	"strings"
	"unicode"

	"collisio/internal/records"
)

// Default cardinality bounds for a chartable field.
const (
	DefaultMinDistinct = 2
	DefaultMaxDistinct = 15
)

// coordinateFields are normalised names of geometry columns that are never charted.
var coordinateFields = map[string]bool{
	"latitude":    true,
	"lat":         true,
	"longitude":   true,
	"long":        true,
	"lon":         true,
	"lng":         true,
	"x":           true,
	"y":           true,
	"xcoord":      true,
	"ycoord":      true,
	"xcoordinate": true,
	"ycoordinate": true,
}

// Classifier selects the categorical fields of a table.
type Classifier struct {
	MinDistinct int
	MaxDistinct int
}

// DefaultClassifier returns a classifier accepting 2 to 15 distinct values.
func DefaultClassifier() Classifier {
	return Classifier{MinDistinct: DefaultMinDistinct, MaxDistinct: DefaultMaxDistinct}
}

// Classify returns, in column order, every text-typed, non-coordinate field
// whose distinct non-missing value count lies in [MinDistinct, MaxDistinct].
func (c Classifier) Classify(t *records.Table) []string {
	var out []string
	for _, name := range t.Columns() {
		if c.Qualifies(t, name) {
			out = append(out, name)
		}
	}
	return out
}

// Qualifies reports whether a single field passes the classifier.
func (c Classifier) Qualifies(t *records.Table, name string) bool {
	if !t.Has(name) || IsCoordinateField(name) || !t.IsText(name) {
		return false
	}
	n := t.Distinct(name)
	return n >= c.MinDistinct && n <= c.MaxDistinct
}

// IsCoordinateField reports whether name denotes latitude, longitude or an X/Y coordinate.
func IsCoordinateField(name string) bool {
	return coordinateFields[FieldKey(name)]
}

// FieldKey lowercases name and drops everything but letters and digits, so
// "X-Coordinate", "x coordinate" and "XCoordinate" compare equal.
func FieldKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
