package geo

import (
	"cmp"
	"slices"

	"github.com/tidwall/rtree"
)

// Point is a stop with coordinates.
type Point struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Nearby is a Point with its distance from the query position.
type Nearby struct {
	Point
	Distance float64
}

// StopIndex answers radius queries over stops. It is immutable once built.
type StopIndex struct {
	tree rtree.RTreeG[Point]
	size int
}

// NewStopIndex indexes points, skipping invalid coordinates.
func NewStopIndex(points []Point) *StopIndex {
	idx := &StopIndex{}
	for _, p := range points {
		if !ValidCoordinate(p.Lat, p.Lon) {
			continue
		}
		pt := [2]float64{p.Lon, p.Lat}
		idx.tree.Insert(pt, pt, p)
		idx.size++
	}
	return idx
}

func (idx *StopIndex) Len() int {
	if idx == nil {
		return 0
	}
	return idx.size
}

// Nearby returns the stops within radius meters of (lat, lon), nearest first,
// at most limit of them when limit > 0.
func (idx *StopIndex) Nearby(lat, lon, radius float64, limit int) []Nearby {
	if idx == nil || radius <= 0 {
		return nil
	}
	b := BoundsAround(lat, lon, radius)

	var out []Nearby
	idx.tree.Search([2]float64{b.MinLon, b.MinLat}, [2]float64{b.MaxLon, b.MaxLat},
		func(_, _ [2]float64, p Point) bool {
			if d := Distance(lat, lon, p.Lat, p.Lon); d <= radius {
				out = append(out, Nearby{Point: p, Distance: d})
			}
			return true
		})

	slices.SortFunc(out, func(a, b Nearby) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
