package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"collisio/internal/records"
)

// Derivation maps a raw date/time value onto a synthetic category.
type Derivation string

const (
	DeriveNone      Derivation = ""
	DeriveWeekday   Derivation = "weekday"
	DeriveDayType   Derivation = "daytype"
	DeriveMonth     Derivation = "month"
	DeriveTimeOfDay Derivation = "timeofday"
)

// Time-of-day buckets.
const (
	Morning   = "Morning"
	Afternoon = "Afternoon"
	Evening   = "Evening"
	Night     = "Night"
	Unknown   = "Unknown"
)

// Unparseable is what NormalizeTime returns for input it cannot read.
const Unparseable = "unparseable"

var (
	// WeekdayOrder is the canonical Monday-first weekday order.
	WeekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	// DayTypeOrder is the canonical weekday/weekend order.
	DayTypeOrder = []string{"Weekday", "Weekend"}
	// MonthOrder is the canonical January-first month order.
	MonthOrder = []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	// TimeOfDayOrder is the canonical bucket order.
	TimeOfDayOrder = []string{Morning, Afternoon, Evening, Night, Unknown}
)

// Valid reports whether d is a known derivation.
func (d Derivation) Valid() bool {
	switch d {
	case DeriveNone, DeriveWeekday, DeriveDayType, DeriveMonth, DeriveTimeOfDay:
		return true
	}
	return false
}

// Order returns the canonical category order of the derivation.
func (d Derivation) Order() []string {
	switch d {
	case DeriveWeekday:
		return WeekdayOrder
	case DeriveDayType:
		return DayTypeOrder
	case DeriveMonth:
		return MonthOrder
	case DeriveTimeOfDay:
		return TimeOfDayOrder
	}
	return nil
}

// RowField names the rows of a table derived from field.
func (d Derivation) RowField(field string) string {
	switch d {
	case DeriveWeekday:
		return "Day of Week"
	case DeriveDayType:
		return "Weekday vs Weekend"
	case DeriveMonth:
		return "Month"
	case DeriveTimeOfDay:
		return "Time of Day"
	}
	return field
}

// Apply maps v to its derived label. ok is false when the row should be
// left out; time of day never leaves a row out.
func (d Derivation) Apply(v records.Value) (label string, ok bool) {
	switch d {
	case DeriveNone:
		if v.IsMissing() {
			return "", false
		}
		return v.Label(), true
	case DeriveTimeOfDay:
		return TimeBucket(normalizeValue(v)), true
	}

	t, ok := AsDate(v)
	if !ok {
		return "", false
	}
	switch d {
	case DeriveWeekday:
		return t.Weekday().String(), true
	case DeriveDayType:
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return "Weekend", true
		}
		return "Weekday", true
	case DeriveMonth:
		return t.Month().String(), true
	}
	return "", false
}

// Excel serial day numbers accepted as dates: 1900-01-01 through 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// AsDate interprets a value as a calendar date. Numbers are read as Excel
// serial dates, the form undecorated date cells take in a workbook.
func AsDate(v records.Value) (time.Time, bool) {
	switch v.Kind {
	case records.Date:
		return v.Time, true
	case records.Number:
		if v.Number < minExcelSerial || v.Number > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(v.Number, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// normalizeValue extracts an "HH:MM" clock from any cell kind.
func normalizeValue(v records.Value) string {
	switch v.Kind {
	case records.Missing:
		return Unparseable
	case records.Date:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && !strings.Contains(v.Raw, ":") {
			return Unparseable
		}
		return fmt.Sprintf("%02d:%02d", v.Time.Hour(), v.Time.Minute())
	case records.Number:
		// Excel stores a bare time as a fraction of a day
		if v.Number >= 0 && v.Number < 1 {
			minutes := int(math.Round(v.Number * 24 * 60))
			if minutes == 24*60 {
				minutes = 0
			}
			return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
		}
		return NormalizeTime(v.Raw)
	}
	return NormalizeTime(v.Raw)
}

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(?::(\d{2})(?:\.\d+)?)?$`)
	militaryPattern = regexp.MustCompile(`^(\d{1,2})(\d{2})$`)
	// "am", "a.m.", "a" and friends; dots are only allowed here
	meridiemPattern = regexp.MustCompile(`^(.*?)([ap])\.?(?:m\.?)?$`)
)

// NormalizeTime converts free-text times such as "7:15", "07:15:00",
// "1:05pm", "11:59 A.M." or "1305" into 24-hour "HH:MM". Anything it
// cannot read yields Unparseable.
func NormalizeTime(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "")

	meridiem := ""
	if m := meridiemPattern.FindStringSubmatch(s); m != nil {
		s, meridiem = m[1], m[2]+"m"
	}

	var hourText, minuteText string
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		hourText, minuteText = m[1], m[2]
		if minuteText == "" && meridiem == "" {
			// A bare number is too ambiguous without am/pm
			return Unparseable
		}
	} else if m := militaryPattern.FindStringSubmatch(s); m != nil && meridiem == "" {
		hourText, minuteText = m[1], m[2]
	} else {
		return Unparseable
	}

	hour, _ := strconv.Atoi(hourText)
	minute := 0
	if minuteText != "" {
		minute, _ = strconv.Atoi(minuteText)
	}
	if minute > 59 {
		return Unparseable
	}

	switch meridiem {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return Unparseable
		}
		hour %= 12
		if meridiem == "pm" {
			hour += 12
		}
	default:
		if hour > 23 {
			return Unparseable
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// TimeBucket maps a normalized "HH:MM" to Morning [06:00,12:00),
// Afternoon [12:00,17:00), Evening [17:00,21:00), Night otherwise, or
// Unknown when the input is not a normalized time.
func TimeBucket(normalized string) string {
	hourText, minuteText, ok := strings.Cut(normalized, ":")
	if !ok || !twoDigits(hourText) || !twoDigits(minuteText) {
		return Unknown
	}
	hour, errH := strconv.Atoi(hourText)
	minute, errM := strconv.Atoi(minuteText)
	if errH != nil || errM != nil || hour > 23 || minute > 59 {
		return Unknown
	}

	switch m := hour*60 + minute; {
	case m >= 6*60 && m < 12*60:
		return Morning
	case m >= 12*60 && m < 17*60:
		return Afternoon
	case m >= 17*60 && m < 21*60:
		return Evening
	default:
		return Night
	}
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// ClassifyTime is NormalizeTime followed by TimeBucket.
func ClassifyTime(raw string) string {
	return TimeBucket(NormalizeTime(raw))
}
