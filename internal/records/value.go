package records

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred scalar type of a cell.
type Kind int

const (
	Missing Kind = iota
	Text
	Number
	Date
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Date:
		return "date"
	default:
		return "missing"
	}
}

// Value is one cell of a Table. Raw keeps the trimmed source text.
type Value struct {
	Kind   Kind
	Raw    string
	Number float64
	Time   time.Time
}

// missingTokens are spreadsheet spellings of an empty cell.
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"#n/a": true,
	"nan":  true,
	"null": true,
	"none": true,
	"-":    true,
}

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseValue infers the kind of a raw cell string.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if missingTokens[strings.ToLower(s)] {
		return Value{Kind: Missing}
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return Value{Kind: Number, Raw: s, Number: n}
	}

	if t, ok := parseDate(s); ok {
		return Value{Kind: Date, Raw: s, Time: t}
	}

	return Value{Kind: Text, Raw: s}
}

func parseDate(s string) (time.Time, bool) {
	// Cheap reject for free text such as "Rear End"
	if len(s) < 6 || !strings.ContainsAny(s, "0123456789") {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool {
	return v.Kind == Missing
}

// Label is the category label of the value as shown in tables and charts.
// Whole numbers print without a decimal part so years stay "2022".
func (v Value) Label() string {
	switch v.Kind {
	case Missing:
		return ""
	case Number:
		if v.Number == math.Trunc(v.Number) && math.Abs(v.Number) < 1e15 {
			return strconv.FormatInt(int64(v.Number), 10)
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case Date:
		return v.Time.Format("2006-01-02")
	default:
		return v.Raw
	}
}
