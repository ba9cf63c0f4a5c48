package timetable

import (
	"timetable.intermodal.org/internal/calendar"
)

// Status tells an empty answer apart from a populated one.
type Status string

const (
	StatusScheduled     Status = "scheduled"
	StatusNoMoreService Status = "no_more_service"
)

// maxFollowing is how many departures are listed after the next one.
const maxFollowing = 2

// NextResult is the answer to a next-departures query.
type NextResult struct {
	Status    Status      `json:"status"`
	Next      *Departure  `json:"next"`
	Following []Departure `json:"following"`
}

// NextDepartures returns the first departure strictly after now on date,
// plus up to two more. Departures sharing a time are ordered by service
// pattern id. A date outside the resolver's validity window returns a
// *calendar.ValidityError, never an empty result.
func NextDepartures(departures []Departure, resolver calendar.Resolver, date calendar.DateKey, now Minutes) (NextResult, error) {
	if err := resolver.CheckDate(date); err != nil {
		return NextResult{}, err
	}

	active := newActivity(resolver, date)
	var upcoming []Departure
	for _, d := range departures {
		ok, err := active.isActive(d.ServicePatternID)
		if err != nil {
			return NextResult{}, err
		}
		if ok && d.Time > now {
			upcoming = append(upcoming, d)
		}
	}
	SortDepartures(upcoming)

	res := NextResult{Status: StatusNoMoreService, Following: []Departure{}}
	if len(upcoming) == 0 {
		return res, nil
	}
	first := upcoming[0]
	res.Status = StatusScheduled
	res.Next = &first
	rest := upcoming[1:]
	if len(rest) > maxFollowing {
		rest = rest[:maxFollowing]
	}
	res.Following = append(res.Following, rest...)
	return res, nil
}
