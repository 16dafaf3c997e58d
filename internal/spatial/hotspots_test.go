//go:build !windows && cgo

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHotspots(t *testing.T) {
	points := []Point{
		{Lat: 43.6510, Lon: -79.3830},
		{Lat: 43.6510, Lon: -79.3830},
		{Lat: 43.6510, Lon: -79.3830},
		{Lat: 40.7128, Lon: -74.0060},
	}

	spots, err := Hotspots(points, 8, 0)
	require.NoError(t, err)
	require.Len(t, spots, 2)

	assert.Equal(t, 3, spots[0].Count)
	assert.Equal(t, 1, spots[1].Count)
	assert.InDelta(t, 43.651, spots[0].Lat, 0.01)
	assert.Contains(t, spots[0].Label(), spots[0].Cell)

	top, err := Hotspots(points, 8, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestHotspots_InvalidResolution(t *testing.T) {
	_, err := Hotspots([]Point{{Lat: 1, Lon: 1}}, 16, 0)
	assert.Error(t, err)
}
