package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
)

func ptr(f float64) *float64 { return &f }

func TestDistance(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		want       float64
		tolerance  float64
	}{
		{"same point", 38.52, -8.89, 38.52, -8.89, 0, 0.001},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 200},
		{"lisbon to porto", 38.7223, -9.1393, 41.1579, -8.6291, 274000, 3000},
		{"short hop", 38.5244, -8.8882, 38.5254, -8.8882, 111, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
			assert.InDelta(t, got, Distance(tt.lat2, tt.lon2, tt.lat1, tt.lon1), 1e-6)
		})
	}
}

func TestBoundsAroundContainsRadius(t *testing.T) {
	b := BoundsAround(38.52, -8.89, 1000)
	assert.InDelta(t, 1000, Distance(38.52, -8.89, b.MaxLat, -8.89), 1)
	assert.InDelta(t, 1000, Distance(38.52, -8.89, 38.52, b.MaxLon), 1)
	assert.Less(t, b.MinLat, b.MaxLat)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(38.5, -8.9))
	assert.False(t, ValidCoordinate(91, 0))
	assert.False(t, ValidCoordinate(0, -181))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
}

func TestStopIndexNearby(t *testing.T) {
	idx := NewStopIndex([]Point{
		{ID: "center", Name: "Centro", Lat: 38.5244, Lon: -8.8882},
		{ID: "near", Name: "Mercado", Lat: 38.5254, Lon: -8.8882},
		{ID: "far", Name: "Praia", Lat: 38.4800, Lon: -8.9800},
		{ID: "bad", Name: "Broken", Lat: 200, Lon: 0},
	})
	assert.Equal(t, 3, idx.Len())

	got := idx.Nearby(38.5244, -8.8882, 500, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "center", got[0].ID)
	assert.Equal(t, "near", got[1].ID)
	assert.InDelta(t, 111, got[1].Distance, 2)

	limited := idx.Nearby(38.5244, -8.8882, 50000, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "center", limited[0].ID)

	assert.Empty(t, idx.Nearby(38.5244, -8.8882, 0, 0))

	var empty *StopIndex
	assert.Empty(t, empty.Nearby(0, 0, 100, 0))
	assert.Equal(t, 0, empty.Len())
}

func TestSegmentsSplitAtUnknownStops(t *testing.T) {
	stops := []PathStop{
		{ID: "a", Lat: ptr(38.50), Lon: ptr(-8.90)},
		{ID: "b", Lat: ptr(38.51), Lon: ptr(-8.91)},
		{ID: "x"},
		{ID: "c", Lat: ptr(38.52), Lon: ptr(-8.92)},
		{ID: "y"},
		{ID: "d", Lat: ptr(38.53), Lon: ptr(-8.93)},
		{ID: "e", Lat: ptr(38.54), Lon: ptr(-8.94)},
		{ID: "f", Lat: ptr(38.55), Lon: ptr(-8.95)},
	}

	segments := Segments(stops)
	require.Len(t, segments, 2, "the lone stop c is dropped")
	assert.Len(t, segments[0], 2)
	assert.Len(t, segments[1], 3)

	encoded := EncodeSegments(stops)
	require.Len(t, encoded, 2)
	coords, _, err := polyline.DecodeCoords([]byte(encoded[1]))
	require.NoError(t, err)
	require.Len(t, coords, 3)
	assert.InDelta(t, 38.53, coords[0][0], 1e-5)
	assert.InDelta(t, -8.95, coords[2][1], 1e-5)

	assert.Empty(t, EncodeSegments(nil))
}
