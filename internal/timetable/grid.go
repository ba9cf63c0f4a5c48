package timetable

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"timetable.intermodal.org/internal/calendar"
)

// GridCell is one minute entry of a grid row. Blank padding cells have an
// empty Minute.
type GridCell struct {
	Minute string `json:"minute"`
	Letter string `json:"letter,omitempty"`
}

func (c GridCell) Blank() bool {
	return c.Minute == ""
}

// Text is the combined display value, e.g. "14C".
func (c GridCell) Text() string {
	return c.Minute + c.Letter
}

// Grid is the 24 x Depth display table of one (period, day type) bucket.
// Row i holds the departures of hour HourOfSlot(i), sorted and left-packed.
type Grid struct {
	Period  calendar.Period  `json:"period"`
	DayType calendar.DayType `json:"dayType"`
	Depth   int              `json:"depth"`
	Rows    [][]GridCell     `json:"rows"`
}

func (g Grid) Bucket() calendar.Bucket {
	return calendar.Bucket{Period: g.Period, DayType: g.DayType}
}

// Count is the number of non-blank cells.
func (g Grid) Count() int {
	n := 0
	for _, row := range g.Rows {
		for _, c := range row {
			if !c.Blank() {
				n++
			}
		}
	}
	return n
}

// GridSet holds the non-empty grids of a stop in bucket order together with
// the meaning of every exception letter they use.
type GridSet struct {
	Grids  []Grid            `json:"grids"`
	Legend map[string]string `json:"legend"`
}

func (gs GridSet) Grid(b calendar.Bucket) (Grid, bool) {
	for _, g := range gs.Grids {
		if g.Bucket() == b {
			return g, true
		}
	}
	return Grid{}, false
}

// GridBuilder places departures into bucket grids straight from the
// activity vector cells, without picking a representative date.
type GridBuilder struct {
	matrix *calendar.Matrix
	legend *calendar.Legend
}

func NewGridBuilder(matrix *calendar.Matrix, legend *calendar.Legend) *GridBuilder {
	return &GridBuilder{matrix: matrix, legend: legend}
}

type gridEntry struct {
	time    Minutes
	pattern string
	letter  string
}

// BuildGrids returns the grids of every bucket with at least one departure.
func (gb *GridBuilder) BuildGrids(departures []Departure) (GridSet, error) {
	var buckets [calendar.BucketCount][24][]gridEntry

	for _, d := range departures {
		v, err := gb.matrix.Vector(d.ServicePatternID)
		if err != nil {
			return GridSet{}, err
		}
		slot := SlotOf(d.Time)
		for i, cell := range v {
			if !cell.Runs() {
				continue
			}
			buckets[i][slot] = append(buckets[i][slot], gridEntry{
				time:    d.Time,
				pattern: d.ServicePatternID,
				letter:  cell.Letter,
			})
		}
	}

	set := GridSet{Grids: []Grid{}, Legend: map[string]string{}}
	for i := range buckets {
		depth := 0
		for _, entries := range buckets[i] {
			depth = max(depth, len(entries))
		}
		if depth == 0 {
			continue
		}

		b := calendar.BucketAt(i)
		grid := Grid{Period: b.Period, DayType: b.DayType, Depth: depth, Rows: make([][]GridCell, 24)}
		for slot, entries := range buckets[i] {
			slices.SortStableFunc(entries, func(x, y gridEntry) int {
				if c := cmp.Compare(x.time.Minute(), y.time.Minute()); c != 0 {
					return c
				}
				if c := cmp.Compare(x.time, y.time); c != 0 {
					return c
				}
				return strings.Compare(x.pattern, y.pattern)
			})
			row := make([]GridCell, depth)
			for col, e := range entries {
				row[col] = GridCell{Minute: fmt.Sprintf("%02d", e.time.Minute()), Letter: e.letter}
				if e.letter == "" {
					continue
				}
				if _, done := set.Legend[e.letter]; done {
					continue
				}
				desc, ok := gb.legend.Describe(e.letter)
				if !ok {
					return GridSet{}, fmt.Errorf("%w: %q is not in the legend", calendar.ErrUndefinedException, e.letter)
				}
				set.Legend[e.letter] = desc
			}
			grid.Rows[slot] = row
		}
		set.Grids = append(set.Grids, grid)
	}
	return set, nil
}
