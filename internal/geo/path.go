package geo

import (
	"github.com/twpayne/go-polyline"
)

// PathStop is one call of a subroute. Lat and Lon are nil when the stop has
// no known position.
type PathStop struct {
	ID  string
	Lat *float64
	Lon *float64
}

// Segments splits the stop sequence wherever a stop lacks coordinates and
// returns the runs of two or more positioned stops.
func Segments(stops []PathStop) [][][]float64 {
	var (
		segments [][][]float64
		current  [][]float64
	)
	flush := func() {
		if len(current) >= 2 {
			segments = append(segments, current)
		}
		current = nil
	}
	for _, s := range stops {
		if s.Lat == nil || s.Lon == nil || !ValidCoordinate(*s.Lat, *s.Lon) {
			flush()
			continue
		}
		current = append(current, []float64{*s.Lat, *s.Lon})
	}
	flush()
	return segments
}

// EncodeSegments polyline-encodes every segment of stops.
func EncodeSegments(stops []PathStop) []string {
	segments := Segments(stops)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		out = append(out, string(polyline.EncodeCoords(seg)))
	}
	return out
}
