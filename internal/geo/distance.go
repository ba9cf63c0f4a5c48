// Package geo holds the spatial pieces of the timetable: stop distances, the
// nearby-stops index and encoded subroute paths.
package geo

import "math"

// RadiusOfEarthInMeters is the mean Earth radius.
const RadiusOfEarthInMeters = 6371010.0

// Bounds is a latitude/longitude box.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the great-circle distance in meters. Points less than
// 0.2 degrees apart use the equirectangular approximation.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLonRad := (lon2 - lon1) * math.Pi / 180

	if math.Abs(lat2-lat1) < 0.2 && math.Abs(lon2-lon1) < 0.2 {
		x := dLonRad * math.Cos((lat1Rad+lat2Rad)/2)
		y := lat2Rad - lat1Rad
		return RadiusOfEarthInMeters * math.Sqrt(x*x+y*y)
	}

	y := math.Hypot(math.Cos(lat2Rad)*math.Sin(dLonRad),
		math.Cos(lat1Rad)*math.Sin(lat2Rad)-math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLonRad))
	x := math.Sin(lat1Rad)*math.Sin(lat2Rad) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLonRad)
	return RadiusOfEarthInMeters * math.Atan2(y, x)
}

// BoundsAround returns the box containing every point within radius meters
// of (lat, lon).
func BoundsAround(lat, lon, radius float64) Bounds {
	latOffset := radius / RadiusOfEarthInMeters * 180 / math.Pi
	lonOffset := radius / (math.Cos(lat*math.Pi/180) * RadiusOfEarthInMeters) * 180 / math.Pi
	return Bounds{
		MinLat: lat - latOffset,
		MaxLat: lat + latOffset,
		MinLon: lon - lonOffset,
		MaxLon: lon + lonOffset,
	}
}

// ValidCoordinate reports whether lat/lon are within WGS84 range.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}
