package models

import (
	"slices"

	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/timetable"
)

// CalendarDayEntry is the classification of one date and the service
// patterns running on it.
type CalendarDayEntry struct {
	Date            string   `json:"date"`
	Period          string   `json:"period"`
	DayType         string   `json:"dayType"`
	Resolver        string   `json:"resolver"`
	ServicePatterns []string `json:"servicePatterns"`
}

func NewCalendarDayEntry(date calendar.DateKey, bucket calendar.Bucket, resolver string, patterns []string) CalendarDayEntry {
	if patterns == nil {
		patterns = []string{}
	}
	return CalendarDayEntry{
		Date:            date.String(),
		Period:          bucket.Period.String(),
		DayType:         bucket.DayType.String(),
		Resolver:        resolver,
		ServicePatterns: patterns,
	}
}

// GridModel is one bucket grid with the hour label of every row.
type GridModel struct {
	Period  string                 `json:"period"`
	DayType string                 `json:"dayType"`
	Depth   int                    `json:"depth"`
	Hours   []int                  `json:"hours"`
	Rows    [][]timetable.GridCell `json:"rows"`
}

type GridEntry struct {
	SubrouteID string            `json:"subrouteId"`
	StopID     string            `json:"stopId"`
	StopName   string            `json:"stopName"`
	Grids      []GridModel       `json:"grids"`
	Legend     map[string]string `json:"legend"`
}

func NewGridEntry(subrouteID, stopID, stopName string, set timetable.GridSet) GridEntry {
	entry := GridEntry{
		SubrouteID: subrouteID,
		StopID:     stopID,
		StopName:   stopName,
		Grids:      make([]GridModel, 0, len(set.Grids)),
		Legend:     set.Legend,
	}
	for _, g := range set.Grids {
		hours := make([]int, len(g.Rows))
		for slot := range hours {
			hours[slot] = timetable.HourOfSlot(slot)
		}
		entry.Grids = append(entry.Grids, GridModel{
			Period:  g.Period.String(),
			DayType: g.DayType.String(),
			Depth:   g.Depth,
			Hours:   hours,
			Rows:    g.Rows,
		})
	}
	return entry
}

type DepartureModel struct {
	Time             string `json:"time"`
	ServicePatternID string `json:"servicePatternId"`
}

func newDepartureModel(d timetable.Departure) DepartureModel {
	return DepartureModel{Time: d.Time.String(), ServicePatternID: d.ServicePatternID}
}

type NextDeparturesEntry struct {
	SubrouteID string           `json:"subrouteId"`
	StopID     string           `json:"stopId"`
	Date       string           `json:"date"`
	Time       string           `json:"time"`
	Status     string           `json:"status"`
	Next       *DepartureModel  `json:"next"`
	Following  []DepartureModel `json:"following"`
}

func NewNextDeparturesEntry(subrouteID, stopID string, date calendar.DateKey, now timetable.Minutes, res timetable.NextResult) NextDeparturesEntry {
	entry := NextDeparturesEntry{
		SubrouteID: subrouteID,
		StopID:     stopID,
		Date:       date.String(),
		Time:       now.String(),
		Status:     string(res.Status),
		Following:  make([]DepartureModel, 0, len(res.Following)),
	}
	if res.Next != nil {
		next := newDepartureModel(*res.Next)
		entry.Next = &next
	}
	for _, d := range res.Following {
		entry.Following = append(entry.Following, newDepartureModel(d))
	}
	return entry
}

type SubrouteScheduleModel struct {
	SubrouteID string      `json:"subrouteId"`
	Name       string      `json:"name"`
	Empty      bool        `json:"empty"`
	MinHour    int         `json:"minHour"`
	MaxHour    int         `json:"maxHour"`
	Hours      []int       `json:"hours"`
	Depth      int         `json:"depth"`
	Rows       [][]*string `json:"rows"`
}

type RouteScheduleEntry struct {
	RouteID   string                  `json:"routeId"`
	Date      string                  `json:"date"`
	Subroutes []SubrouteScheduleModel `json:"subroutes"`
}

// NewRouteScheduleEntry lists the schedules in the order of subroutes; names
// maps subroute ids to display names.
func NewRouteScheduleEntry(routeID string, date calendar.DateKey, order []string, names map[string]string, schedules map[string]timetable.SubrouteSchedule) RouteScheduleEntry {
	entry := RouteScheduleEntry{RouteID: routeID, Date: date.String(), Subroutes: []SubrouteScheduleModel{}}
	if order == nil {
		for id := range schedules {
			order = append(order, id)
		}
		slices.Sort(order)
	}
	for _, id := range order {
		s, ok := schedules[id]
		if !ok {
			continue
		}
		entry.Subroutes = append(entry.Subroutes, SubrouteScheduleModel{
			SubrouteID: id,
			Name:       names[id],
			Empty:      s.Empty,
			MinHour:    s.MinHour,
			MaxHour:    s.MaxHour,
			Hours:      s.Hours,
			Depth:      s.Depth,
			Rows:       s.Transposed,
		})
	}
	return entry
}
