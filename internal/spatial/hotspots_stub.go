//go:build windows || !cgo

package spatial

import "errors"

// HotspotsAvailable reports whether this build can index points into H3 cells.
const HotspotsAvailable = false

// ErrHotspotsUnavailable is returned by builds without cgo.
var ErrHotspotsUnavailable = errors.New("H3 hotspots require cgo")

func Hotspots(points []Point, res, top int) ([]Hotspot, error) {
	return nil, ErrHotspotsUnavailable
}
