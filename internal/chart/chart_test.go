package chart

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collisio/internal/analysis"
)

func single(labels []string, counts ...int) *analysis.FrequencyTable {
	t := &analysis.FrequencyTable{
		RowField:  "Classification Of Accident",
		RowLabels: labels,
		ColLabels: []string{analysis.CountColumn},
	}
	for _, c := range counts {
		t.Counts = append(t.Counts, []int{c})
	}
	return t
}

func crossTab() *analysis.FrequencyTable {
	return &analysis.FrequencyTable{
		RowField:  "Day of Week",
		ColField:  "Classification Of Accident",
		RowLabels: analysis.WeekdayOrder,
		ColLabels: []string{"Fatal", "Injury", "Property Damage Only"},
		Counts: [][]int{
			{1, 2, 0}, {0, 1, 1}, {0, 0, 0}, {2, 0, 1}, {0, 3, 3}, {1, 1, 1}, {0, 0, 4},
		},
	}
}

func TestChoose(t *testing.T) {
	six := single([]string{"a", "b", "c", "d", "e", "f"}, 1, 1, 1, 1, 1, 1)
	seven := single([]string{"a", "b", "c", "d", "e", "f", "g"}, 1, 1, 1, 1, 1, 1, 1)

	tests := []struct {
		name      string
		requested Kind
		table     *analysis.FrequencyTable
		pieMax    int
		want      Kind
	}{
		{"pie within limit", Pie, six, 6, Pie},
		{"pie over limit falls back to bar", Pie, seven, 6, Bar},
		{"default limit applies", Pie, seven, 0, Bar},
		{"configured limit", Pie, seven, 8, Pie},
		{"bar stays bar", Bar, six, 6, Bar},
		{"cross-tab is stacked", Pie, crossTab(), 6, StackedBar},
		{"cross-tab bar is stacked", Bar, crossTab(), 6, StackedBar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Choose(tt.requested, tt.table, tt.pieMax))
		})
	}
}

func TestPlotRenderer_Render(t *testing.T) {
	r := NewPlotRenderer()

	tests := []struct {
		name  string
		kind  Kind
		table *analysis.FrequencyTable
	}{
		{"pie", Pie, single([]string{"Fatal", "Injury", "Property Damage Only"}, 1, 6, 5)},
		{"bar", Bar, single([]string{"Daylight", "Dark", "Dawn", "Dusk"}, 9, 4, 0, 2)},
		{"stacked", StackedBar, crossTab()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := r.Render(context.Background(), Request{Kind: tt.kind, Title: "Accident Severity", Table: tt.table})
			require.NoError(t, err)

			decoded, err := png.Decode(bytes.NewReader(img))
			require.NoError(t, err)
			assert.Equal(t, 7*96, decoded.Bounds().Dx())
			assert.Equal(t, 5*96, decoded.Bounds().Dy())
		})
	}
}

func TestPlotRenderer_RejectsBadRequests(t *testing.T) {
	r := NewPlotRenderer()
	ctx := context.Background()

	_, err := r.Render(ctx, Request{Kind: Bar, Table: single(nil)})
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = r.Render(ctx, Request{Kind: Bar, Table: single([]string{"a"}, 0)})
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = r.Render(ctx, Request{Kind: "radar", Table: single([]string{"a", "b"}, 1, 2)})
	assert.Error(t, err)

	_, err = r.Render(ctx, Request{Kind: Pie, Table: crossTab()})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.Render(cancelled, Request{Kind: Bar, Table: single([]string{"a", "b"}, 1, 2)})
	assert.ErrorIs(t, err, context.Canceled)
}
