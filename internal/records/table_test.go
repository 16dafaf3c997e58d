package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_Headers(t *testing.T) {
	table := NewTable([]string{" Location ", "", "Light", "Light"})

	assert.Equal(t, []string{"Location", "Column 2", "Light", "Light.1"}, table.Columns())
	assert.True(t, table.Has("location"), "lookup falls back to case-insensitive")
	assert.True(t, table.Has("Light.1"))
	assert.False(t, table.Has("Latitude"))
}

func TestTable_RowsAndColumns(t *testing.T) {
	table := FromStrings(
		[]string{"Classification Of Accident", "Accident Year", "Latitude"},
		[][]string{
			{"Fatal", "2022", "43.6"},
			{"Injury", "2022"},
			{"Injury", "2023", "43.7", "extra"},
			{"", "2023", ""},
		},
	)

	require.Equal(t, 4, table.Len())

	v, ok := table.Value(1, "Latitude")
	require.True(t, ok)
	assert.True(t, v.IsMissing(), "short rows are padded")

	_, ok = table.Value(9, "Latitude")
	assert.False(t, ok)

	col, ok := table.Column("Classification Of Accident")
	require.True(t, ok)
	assert.Len(t, col, 4)

	assert.True(t, table.IsText("Classification Of Accident"))
	assert.False(t, table.IsText("Accident Year"))
	assert.False(t, table.IsText("Latitude"))
	assert.False(t, table.IsText("Missing Column"))

	assert.Equal(t, 2, table.Distinct("Classification Of Accident"), "missing values are not a category")
	assert.Equal(t, 2, table.Distinct("Accident Year"))
	assert.Equal(t, 0, table.Distinct("Nope"))
}

func TestTable_Profiles(t *testing.T) {
	table := FromStrings(
		[]string{"Severity", "Year", "Date", "Mixed"},
		[][]string{
			{"Fatal", "2022", "2022-01-03", "12"},
			{"Injury", "2023", "2022-01-04", "n/a"},
			{"", "2023", "", "twelve"},
		},
	)

	profiles := table.Profiles()
	require.Len(t, profiles, 4)

	assert.Equal(t, Profile{Name: "Severity", Kind: "text", Distinct: 2, Missing: 1}, profiles[0])
	assert.Equal(t, Profile{Name: "Year", Kind: "number", Distinct: 2, Missing: 0}, profiles[1])
	assert.Equal(t, Profile{Name: "Date", Kind: "date", Distinct: 2, Missing: 1}, profiles[2])
	assert.Equal(t, "text", profiles[3].Kind)
}
