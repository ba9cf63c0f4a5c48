package restapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/clock"
	"timetable.intermodal.org/internal/timetable"
)

var errMalformedDate = errors.New("invalid date")

func parseDateParam(s string) (calendar.DateKey, error) {
	date, err := calendar.ParseDateKey(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: expected YYYYMMDD", errMalformedDate, s)
	}
	return date, nil
}

// queryMoment returns the service date and minutes for a request. The clock
// is read once; ?date= and ?time= override either half of the reading.
// Without overrides, a reading before the service day starts belongs to the
// previous service day, whose late trips run past 24:00.
func (api *RestAPI) queryMoment(r *http.Request) (calendar.DateKey, timetable.Minutes, error) {
	reading := clock.Capture(api.Clock, api.Location())
	date := calendar.DateKeyOf(reading.Time)
	now := timetable.Minutes(reading.Minutes)

	q := r.URL.Query()
	dateParam, timeParam := q.Get("date"), q.Get("time")
	if dateParam == "" && timeParam == "" && reading.Minutes < timetable.ServiceDayStartHour*60 {
		return date.AddDays(-1), now + timetable.MinutesPerDay, nil
	}

	if dateParam != "" {
		d, err := parseDateParam(dateParam)
		if err != nil {
			return 0, 0, err
		}
		date = d
	}
	if timeParam != "" {
		m, err := timetable.ParseClock(timeParam)
		if err != nil {
			return 0, 0, err
		}
		now = m
	}
	return date, now, nil
}

func parseFloatParam(r *http.Request, name string, fallback float64, required bool) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		if required {
			return 0, fmt.Errorf("missing required parameter %q", name)
		}
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func parseIntParam(r *http.Request, name string, fallback int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// parseBucketFilter reads the optional ?period= and ?day= grid filters. An
// absent parameter matches every value.
func parseBucketFilter(r *http.Request) (func(calendar.Bucket) bool, error) {
	q := r.URL.Query()
	var (
		period    calendar.Period
		dayType   calendar.DayType
		hasPeriod bool
		hasDay    bool
		err       error
	)
	if s := q.Get("period"); s != "" {
		if period, err = calendar.ParsePeriod(s); err != nil {
			return nil, err
		}
		hasPeriod = true
	}
	if s := q.Get("day"); s != "" {
		if dayType, err = calendar.ParseDayType(s); err != nil {
			return nil, err
		}
		hasDay = true
	}
	return func(b calendar.Bucket) bool {
		return (!hasPeriod || b.Period == period) && (!hasDay || b.DayType == dayType)
	}, nil
}
