package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatShare(t *testing.T) {
	tests := []struct {
		name        string
		part, total int
		expected    string
	}{
		{"zero total", 3, 0, "0.00"},
		{"whole", 4, 4, "100.00"},
		{"third", 1, 3, "33.33"},
		{"two thirds rounds up", 2, 3, "66.67"},
		{"none", 0, 7, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatShare(tt.part, tt.total))
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Accident Severity Distribution", "accident_severity_distribution"},
		{"Accident Type by Weekday vs Weekend", "accident_type_by_weekday_vs_weekend"},
		{"  Driver 1 / Condition  ", "driver_1_condition"},
		{"???", "section"},
		{"An extraordinarily long section title that keeps going on", "an_extraordinarily_long_section_title_that_keeps"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, slug(tt.input))
		})
	}
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "S1 Accident Severity Distributi", sheetName(1, "Accident Severity Distribution"))
	assert.Equal(t, "S12 Light Distribution", sheetName(12, "Light Distribution"))
	assert.Equal(t, "S3 Driver 1 Condition", sheetName(3, "Driver 1 / Condition"))
	assert.LessOrEqual(t, len([]rune(sheetName(100, "Apparent Driver 1 Action Trends"))), 31)
}
