//go:build !windows && cgo

package spatial

import (
	"fmt"
	"sort"

	"github.com/uber/h3-go/v4"
)

// HotspotsAvailable reports whether this build can index points into H3 cells.
const HotspotsAvailable = true

// Hotspots groups points into H3 cells at resolution res and returns the
// top cells by count. Ties are ordered by cell index.
func Hotspots(points []Point, res, top int) ([]Hotspot, error) {
	counts := make(map[h3.Cell]int)
	for _, p := range points {
		cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), res)
		if err != nil {
			return nil, fmt.Errorf("index (%f, %f): %w", p.Lat, p.Lon, err)
		}
		counts[cell]++
	}

	cells := make([]h3.Cell, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if counts[cells[i]] != counts[cells[j]] {
			return counts[cells[i]] > counts[cells[j]]
		}
		return cells[i] < cells[j]
	})
	if top > 0 && len(cells) > top {
		cells = cells[:top]
	}

	spots := make([]Hotspot, 0, len(cells))
	for _, c := range cells {
		center, err := c.LatLng()
		if err != nil {
			return nil, fmt.Errorf("centre of %s: %w", c, err)
		}
		spots = append(spots, Hotspot{Cell: c.String(), Lat: center.Lat, Lon: center.Lng, Count: counts[c]})
	}
	return spots, nil
}
