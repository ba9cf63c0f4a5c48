package timetable

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/valyala/fastjson"
	"timetable.intermodal.org/internal/calendar"
)

// Departure is one scheduled passage at a stop.
type Departure struct {
	Time             Minutes `json:"time"`
	ServicePatternID string  `json:"servicePatternId"`
}

func compareDepartures(a, b Departure) int {
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	return strings.Compare(a.ServicePatternID, b.ServicePatternID)
}

// SortDepartures orders by time, then by service pattern id.
func SortDepartures(ds []Departure) {
	slices.SortStableFunc(ds, compareDepartures)
}

// StopTimetable is the departure list of one stop on one subroute. The list
// is kept in file order; consumers sort.
type StopTimetable struct {
	Stop       string      `json:"stop"`
	Departures []Departure `json:"departures"`
}

// ParseSubrouteTimetable reads a per-subroute timetable file: an array of
// [stopName, [[ "HH:MM", servicePatternId ], ...]] pairs in stop order.
// Blank times mean the trip does not call at the stop and are skipped.
func ParseSubrouteTimetable(data []byte) ([]StopTimetable, error) {
	var p fastjson.Parser
	root, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timetable: %w", err)
	}
	entries, err := root.Array()
	if err != nil {
		return nil, fmt.Errorf("timetable: expected array of stops: %w", err)
	}

	stops := make([]StopTimetable, 0, len(entries))
	for i, entry := range entries {
		pair, err := entry.Array()
		if err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("timetable stop %d: expected [name, departures]", i)
		}
		name, err := pair[0].StringBytes()
		if err != nil {
			return nil, fmt.Errorf("timetable stop %d: name: %w", i, err)
		}
		rows, err := pair[1].Array()
		if err != nil {
			return nil, fmt.Errorf("timetable stop %q: expected departures array: %w", name, err)
		}

		st := StopTimetable{Stop: string(name), Departures: make([]Departure, 0, len(rows))}
		for j, row := range rows {
			cols, err := row.Array()
			if err != nil || len(cols) != 2 {
				return nil, fmt.Errorf("timetable stop %q row %d: expected [time, servicePatternId]", name, j)
			}
			text, err := cols[0].StringBytes()
			if err != nil {
				return nil, fmt.Errorf("timetable stop %q row %d: time: %w", name, j, err)
			}
			if strings.TrimSpace(string(text)) == "" {
				continue
			}
			t, err := ParseClock(string(text))
			if err != nil {
				return nil, fmt.Errorf("timetable stop %q row %d: %w", name, j, err)
			}
			id, err := patternID(cols[1])
			if err != nil {
				return nil, fmt.Errorf("timetable stop %q row %d: %w", name, j, err)
			}
			st.Departures = append(st.Departures, Departure{Time: t, ServicePatternID: id})
		}
		stops = append(stops, st)
	}
	return stops, nil
}

// patternID accepts ids exported either as strings or as bare numbers.
func patternID(v *fastjson.Value) (string, error) {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b), nil
	case fastjson.TypeNumber:
		return string(v.MarshalTo(nil)), nil
	}
	return "", fmt.Errorf("service pattern id must be a string or number, got %s", v.Type())
}

// activity memoises resolver answers for one date within a single call.
type activity struct {
	resolver calendar.Resolver
	date     calendar.DateKey
	seen     map[string]bool
}

func newActivity(r calendar.Resolver, date calendar.DateKey) *activity {
	return &activity{resolver: r, date: date, seen: make(map[string]bool)}
}

func (a *activity) isActive(patternID string) (bool, error) {
	if v, ok := a.seen[patternID]; ok {
		return v, nil
	}
	v, err := a.resolver.IsActive(patternID, a.date)
	if err != nil {
		return false, err
	}
	a.seen[patternID] = v
	return v, nil
}
