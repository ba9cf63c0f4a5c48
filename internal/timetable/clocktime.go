// Package timetable turns a stop's raw departure list into display grids,
// next-departure answers and per-subroute hourly schedules.
package timetable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Minutes counts minutes since midnight of the service date. Late trips may
// run past 1440.
type Minutes int

const (
	MinutesPerDay = 24 * 60

	// ServiceDayStartHour is the hour shown in the first grid row.
	ServiceDayStartHour = 4
	// maxHour bounds HH in HH:MM; GTFS-style times may reach 47:59.
	maxHour = 48
)

var ErrMalformedTime = errors.New("malformed time")

// TimeParseError carries the offending text. It unwraps to ErrMalformedTime.
type TimeParseError struct {
	Text   string
	Reason string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("malformed time %q: %s", e.Text, e.Reason)
}

func (e *TimeParseError) Unwrap() error {
	return ErrMalformedTime
}

// ParseClock parses "HH:MM" (or "H:MM"). Spreadsheet exports spell 24:00 as
// a 1900-01-0x date; that is read as 1440 so it sorts after the evening.
func ParseClock(s string) (Minutes, error) {
	text := strings.TrimSpace(s)
	if strings.HasPrefix(text, "1900-01-0") {
		return MinutesPerDay, nil
	}
	hh, mm, ok := strings.Cut(text, ":")
	if !ok {
		return 0, &TimeParseError{Text: s, Reason: "expected HH:MM"}
	}
	if len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, &TimeParseError{Text: s, Reason: "expected HH:MM"}
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 {
		return 0, &TimeParseError{Text: s, Reason: "hour is not a number"}
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 {
		return 0, &TimeParseError{Text: s, Reason: "minute is not a number"}
	}
	if h >= maxHour {
		return 0, &TimeParseError{Text: s, Reason: "hour out of range"}
	}
	if m >= 60 {
		return 0, &TimeParseError{Text: s, Reason: "minute out of range"}
	}
	return Minutes(h*60 + m), nil
}

// MustParseClock is ParseClock for literals.
func MustParseClock(s string) Minutes {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Hour is the hour of day, 0 to 23.
func (m Minutes) Hour() int {
	return int(m) / 60 % 24
}

func (m Minutes) Minute() int {
	return int(m) % 60
}

// String formats as HH:MM on the 24 hour clock.
func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", m.Hour(), m.Minute())
}

func (m Minutes) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Slot is the grid row of an hour of day: 04 is row 0 and 03 is row 23.
func Slot(hour int) int {
	return ((hour-ServiceDayStartHour)%24 + 24) % 24
}

// HourOfSlot inverts Slot.
func HourOfSlot(slot int) int {
	return (slot + ServiceDayStartHour) % 24
}

// SlotOf is the grid row a departure time falls on.
func SlotOf(m Minutes) int {
	return Slot(m.Hour())
}
