// Package spatial plots accident coordinates as a colour-coded marker map
// and summarises where they cluster.
package spatial

import (
	"errors"
	"fmt"

	"collisio/internal/analysis"
	"collisio/internal/records"
)

var (
	// ErrNoCoordinateColumns is returned when the table has no latitude/longitude pair.
	ErrNoCoordinateColumns = errors.New("no latitude/longitude columns")
	// ErrNoValidPoints is returned when no row has usable coordinates.
	ErrNoValidPoints = errors.New("no valid coordinates")
)

// UnknownCategory labels points whose classification is blank.
const UnknownCategory = "Unknown"

var (
	// compared against analysis.FieldKey of each header
	latitudeNames  = []string{"latitude", "lat", "ycoordinate", "y"}
	longitudeNames = []string{"longitude", "lon", "long", "lng", "xcoordinate", "x"}
)

// Point is one plottable accident.
type Point struct {
	Lat      float64
	Lon      float64
	Category string
}

// Valid reports whether the coordinates are within geographic bounds.
func Valid(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// CoordinateColumns finds the latitude and longitude columns of t.
func CoordinateColumns(t *records.Table) (lat, lon string, err error) {
	lat = firstColumn(t, latitudeNames)
	lon = firstColumn(t, longitudeNames)
	if lat == "" || lon == "" {
		return "", "", ErrNoCoordinateColumns
	}
	return lat, lon, nil
}

func firstColumn(t *records.Table, names []string) string {
	for _, want := range names {
		for _, col := range t.Columns() {
			if analysis.FieldKey(col) == want {
				return col
			}
		}
	}
	return ""
}

// Extract returns the rows with both coordinates present and in bounds,
// along with how many rows were rejected. classField may be absent, in
// which case every point is UnknownCategory.
func Extract(t *records.Table, classField string) (points []Point, rejected int, err error) {
	latCol, lonCol, err := CoordinateColumns(t)
	if err != nil {
		return nil, 0, err
	}
	lats, _ := t.Column(latCol)
	lons, _ := t.Column(lonCol)
	classes, hasClass := t.Column(classField)

	for i := range lats {
		if lats[i].Kind != records.Number || lons[i].Kind != records.Number ||
			!Valid(lats[i].Number, lons[i].Number) {
			rejected++
			continue
		}
		category := UnknownCategory
		if hasClass && !classes[i].IsMissing() {
			category = classes[i].Label()
		}
		points = append(points, Point{Lat: lats[i].Number, Lon: lons[i].Number, Category: category})
	}
	return points, rejected, nil
}

// Categories counts points per category in descending order.
func Categories(points []Point, field string) *analysis.FrequencyTable {
	var labels []string
	counts := make(map[string]int)
	for _, p := range points {
		if _, ok := counts[p.Category]; !ok {
			labels = append(labels, p.Category)
		}
		counts[p.Category]++
	}
	values := make([]int, len(labels))
	for i, l := range labels {
		values[i] = counts[l]
	}
	return analysis.NewSingle(field, labels, values).SortByCountDesc()
}

// Hotspot is an H3 cell and the number of accidents inside it.
type Hotspot struct {
	Cell  string
	Lat   float64
	Lon   float64
	Count int
}

// Label renders the cell with its centre for tables.
func (h Hotspot) Label() string {
	return fmt.Sprintf("%s (%.5f, %.5f)", h.Cell, h.Lat, h.Lon)
}

// HotspotTable converts hotspots into a single-field frequency table.
func HotspotTable(spots []Hotspot, resolution int) *analysis.FrequencyTable {
	labels := make([]string, len(spots))
	counts := make([]int, len(spots))
	for i, s := range spots {
		labels[i] = s.Label()
		counts[i] = s.Count
	}
	return analysis.NewSingle(fmt.Sprintf("H3 Cell (res %d)", resolution), labels, counts)
}
