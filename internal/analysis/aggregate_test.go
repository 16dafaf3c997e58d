package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collisio/internal/records"
)

const severity = "Classification Of Accident"

func accidents() *records.Table {
	return records.FromStrings(
		[]string{severity, "Location", "Accident Date", "Accident Time"},
		[][]string{
			{"Fatal", "Main St", "2022-01-03", "07:15"},
			{"Injury", "Main St", "2022-01-04", "1:05pm"},
			{"Injury", "King St", "2022-01-08", "18:40"},
			{"Property Damage Only", "King St", "2022-01-09", "23:10"},
			{"Property Damage Only", "Queen St", "2023-02-15", "garbage"},
			{"Injury", "", "not a date", ""},
			{"", "Queen St", "2023-02-16", "12:00"},
		},
	)
}

func TestCount_Scenario(t *testing.T) {
	table := records.FromStrings(
		[]string{severity},
		[][]string{{"Fatal"}, {"Injury"}, {"Injury"}},
	)

	freq, err := Count(table, severity)
	require.NoError(t, err)

	assert.False(t, freq.IsCrossTab())
	assert.Equal(t, []string{"Fatal", "Injury"}, freq.RowLabels)
	assert.Equal(t, 1, freq.Value("Fatal"))
	assert.Equal(t, 2, freq.Value("Injury"))
	assert.Equal(t, 3, freq.Total())
}

func TestCount_SumsToNonMissingRows(t *testing.T) {
	freq, err := Count(accidents(), severity)
	require.NoError(t, err)
	assert.Equal(t, 6, freq.Total(), "the blank classification is not counted")
	assert.Equal(t, 3, freq.Len())
}

func TestCrossTab_SumsToRowsWithBothKeys(t *testing.T) {
	freq, err := CrossTab(accidents(), "Location", severity)
	require.NoError(t, err)

	assert.True(t, freq.IsCrossTab())
	assert.Equal(t, 5, freq.Total())
	assert.Equal(t, []string{"King St", "Main St", "Queen St"}, freq.RowLabels)
	assert.Equal(t, []string{"Fatal", "Injury", "Property Damage Only"}, freq.ColLabels)
	assert.Equal(t, 0, freq.Count("King St", "Fatal"), "missing pairs are zero filled")
	assert.Equal(t, 1, freq.Count("Queen St", "Property Damage Only"))
	for _, row := range freq.Counts {
		assert.Len(t, row, len(freq.ColLabels))
	}
}

func TestAggregate_WeekdayCrossTabIsDense(t *testing.T) {
	freq, err := Aggregate(accidents(), Spec{Field: severity, By: "Accident Date", Derive: DeriveWeekday})
	require.NoError(t, err)

	assert.Equal(t, WeekdayOrder, freq.RowLabels)
	assert.Equal(t, "Day of Week", freq.RowField)
	assert.Equal(t, 0, freq.Count("Friday", "Fatal"))
	assert.Equal(t, 1, freq.Count("Monday", "Fatal"))
	assert.Equal(t, 1, freq.Count("Wednesday", "Property Damage Only"))
	assert.Equal(t, 5, freq.Total(), "undated and unclassified rows are left out")
}

func TestAggregate_DayTypeAndMonth(t *testing.T) {
	dayType, err := Aggregate(accidents(), Spec{Field: severity, By: "Accident Date", Derive: DeriveDayType})
	require.NoError(t, err)
	assert.Equal(t, []string{"Weekday", "Weekend"}, dayType.RowLabels)
	assert.Equal(t, 2, dayType.Value("Weekend"))

	month, err := Aggregate(accidents(), Spec{Field: severity, By: "Accident Date", Derive: DeriveMonth})
	require.NoError(t, err)
	assert.Len(t, month.RowLabels, 12)
	assert.Equal(t, 4, month.Value("January"))
	assert.Equal(t, 1, month.Value("February"))
	assert.Equal(t, 0, month.Value("December"))
}

func TestAggregate_TimeOfDay(t *testing.T) {
	freq, err := Aggregate(accidents(), Spec{Field: severity, By: "Accident Time", Derive: DeriveTimeOfDay})
	require.NoError(t, err)
	assert.Equal(t, TimeOfDayOrder, freq.RowLabels)
	assert.Equal(t, 1, freq.Value(Morning))
	assert.Equal(t, 1, freq.Value(Afternoon))
	assert.Equal(t, 1, freq.Value(Evening))
	assert.Equal(t, 1, freq.Value(Night))
	assert.Equal(t, 2, freq.Value(Unknown))

	dropped, err := Aggregate(accidents(), Spec{Field: severity, By: "Accident Time", Derive: DeriveTimeOfDay, DropUnknown: true})
	require.NoError(t, err)
	assert.Equal(t, []string{Morning, Afternoon, Evening, Night}, dropped.RowLabels)
}

func TestAggregate_SingleFieldDerived(t *testing.T) {
	freq, err := Aggregate(accidents(), Spec{Field: "Accident Time", Derive: DeriveTimeOfDay})
	require.NoError(t, err)
	assert.False(t, freq.IsCrossTab())
	assert.Equal(t, TimeOfDayOrder, freq.RowLabels)
	assert.Equal(t, 7, freq.Total())
}

func TestAggregate_OrderLimitCollapse(t *testing.T) {
	freq, err := Aggregate(accidents(), Spec{
		Field:    severity,
		By:       "Location",
		Order:    OrderCountDesc,
		Limit:    2,
		Collapse: true,
	})
	require.NoError(t, err)

	assert.False(t, freq.IsCrossTab())
	assert.Equal(t, []string{"King St", "Main St"}, freq.RowLabels)
	assert.Equal(t, []int{2, 2}, freq.RowTotals())
}

func TestAggregate_DefaultSingleOrderIsCountDesc(t *testing.T) {
	freq, err := Aggregate(accidents(), Spec{Field: severity})
	require.NoError(t, err)
	assert.Equal(t, []string{"Injury", "Property Damage Only", "Fatal"}, freq.RowLabels)
}

func TestAggregate_MissingField(t *testing.T) {
	_, err := Aggregate(accidents(), Spec{Field: "Light"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = CrossTab(accidents(), "Impact Location", severity)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Aggregate(accidents(), Spec{Field: severity, Derive: "fortnight"})
	assert.Error(t, err)
}

func TestAggregate_AllDatesUnparseable(t *testing.T) {
	table := records.FromStrings([]string{severity, "Accident Date"}, [][]string{{"Fatal", "soon"}, {"Injury", "later"}})

	freq, err := Aggregate(table, Spec{Field: severity, By: "Accident Date", Derive: DeriveWeekday})
	require.NoError(t, err)
	assert.True(t, freq.Empty())
}
