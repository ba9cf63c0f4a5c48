package timetable

import (
	"fmt"
	"slices"

	"timetable.intermodal.org/internal/calendar"
)

const (
	// The subroute window is searched from 04:00 through 02:00 of the next
	// day, expressed as hours 4 to 26.
	windowFirstHour = 4
	windowLastHour  = 26
)

// SubrouteDeparture is a departure already attributed to a subroute.
type SubrouteDeparture struct {
	Time       Minutes `json:"time"`
	SubrouteID string  `json:"subrouteId"`
}

// SubrouteSchedule is the hourly view of one subroute's day.
type SubrouteSchedule struct {
	SubrouteID string `json:"subrouteId"`
	// Empty is set when the subroute has no departures; the remaining
	// fields are then zero.
	Empty bool `json:"empty"`
	// Schedule lists "MM" strings by hour of day.
	Schedule [24][]string `json:"schedule"`
	// MinHour and MaxHour bound the active window; MaxHour is 24 to 26 when
	// the window runs past midnight.
	MinHour int   `json:"minHour"`
	MaxHour int   `json:"maxHour"`
	Hours   []int `json:"hours"`
	Depth   int   `json:"depth"`
	// Transposed[slot][i] is the slot-th departure of hour Hours[i], nil when
	// that hour has fewer departures.
	Transposed [][]*string `json:"transposed"`
}

// AggregateSubroutes groups departures by subroute and builds each
// subroute's hourly schedule. Ids listed in subrouteIDs appear in the result
// even when they have no departures.
func AggregateSubroutes(departures []SubrouteDeparture, subrouteIDs ...string) map[string]SubrouteSchedule {
	// Rows are keyed by hour of day, so order by clock time.
	sorted := slices.Clone(departures)
	slices.SortStableFunc(sorted, func(a, b SubrouteDeparture) int {
		return clockOrder(a.Time) - clockOrder(b.Time)
	})

	grouped := make(map[string]*SubrouteSchedule)
	for _, id := range subrouteIDs {
		grouped[id] = &SubrouteSchedule{SubrouteID: id}
	}
	for _, d := range sorted {
		s, ok := grouped[d.SubrouteID]
		if !ok {
			s = &SubrouteSchedule{SubrouteID: d.SubrouteID}
			grouped[d.SubrouteID] = s
		}
		h := d.Time.Hour()
		s.Schedule[h] = append(s.Schedule[h], fmt.Sprintf("%02d", d.Time.Minute()))
	}

	out := make(map[string]SubrouteSchedule, len(grouped))
	for id, s := range grouped {
		s.finish()
		out[id] = *s
	}
	return out
}

func clockOrder(m Minutes) int {
	return m.Hour()*60 + m.Minute()
}

func (s *SubrouteSchedule) finish() {
	s.MinHour, s.MaxHour = -1, -1
	for h := windowFirstHour; h <= windowLastHour; h++ {
		if len(s.Schedule[h%24]) == 0 {
			continue
		}
		if s.MinHour < 0 {
			s.MinHour = h
		}
		s.MaxHour = h
	}
	if s.MinHour < 0 {
		s.Empty = true
		s.MinHour, s.MaxHour = 0, 0
		s.Hours = []int{}
		s.Transposed = [][]*string{}
		return
	}

	rows := make([][]string, 0, s.MaxHour-s.MinHour+1)
	for h := s.MinHour; h <= s.MaxHour; h++ {
		s.Hours = append(s.Hours, h%24)
		rows = append(rows, s.Schedule[h%24])
		s.Depth = max(s.Depth, len(s.Schedule[h%24]))
	}

	s.Transposed = make([][]*string, s.Depth)
	for slot := range s.Transposed {
		line := make([]*string, len(rows))
		for i, row := range rows {
			if slot < len(row) {
				line[i] = &row[slot]
			}
		}
		s.Transposed[slot] = line
	}
}

// RouteDeparture is a route-level departure carrying both its subroute and
// its service pattern.
type RouteDeparture struct {
	Time             Minutes `json:"time"`
	SubrouteID       string  `json:"subrouteId"`
	ServicePatternID string  `json:"servicePatternId"`
}

// ScheduleForDate keeps the departures whose service pattern runs on date
// and aggregates them per subroute.
func ScheduleForDate(departures []RouteDeparture, resolver calendar.Resolver, date calendar.DateKey, subrouteIDs ...string) (map[string]SubrouteSchedule, error) {
	if err := resolver.CheckDate(date); err != nil {
		return nil, err
	}
	active := newActivity(resolver, date)
	kept := make([]SubrouteDeparture, 0, len(departures))
	for _, d := range departures {
		ok, err := active.isActive(d.ServicePatternID)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, SubrouteDeparture{Time: d.Time, SubrouteID: d.SubrouteID})
		}
	}
	return AggregateSubroutes(kept, subrouteIDs...), nil
}
