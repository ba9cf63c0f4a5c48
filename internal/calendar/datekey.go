package calendar

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const dateKeyLayout = "20060102"

// DateKey is a calendar date encoded as the integer YYYYMMDD. Keys order the
// same way the dates they name do.
type DateKey int

// ParseDateKey parses an 8-digit YYYYMMDD string.
func ParseDateKey(s string) (DateKey, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("invalid date key %q: expected YYYYMMDD", s)
	}
	if _, err := time.Parse(dateKeyLayout, s); err != nil {
		return 0, fmt.Errorf("invalid date key %q: %w", s, err)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid date key %q: %w", s, err)
	}
	return DateKey(n), nil
}

// MustParseDateKey is ParseDateKey for constants and tests.
func MustParseDateKey(s string) DateKey {
	d, err := ParseDateKey(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateKeyOf returns the key of the calendar date t falls on in its own location.
func DateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey(y*10000 + int(m)*100 + d)
}

func (d DateKey) Year() int         { return int(d) / 10000 }
func (d DateKey) Month() time.Month { return time.Month(int(d) / 100 % 100) }
func (d DateKey) Day() int          { return int(d) % 100 }

// Time returns midnight UTC of the date.
func (d DateKey) Time() time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func (d DateKey) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays moves the key by n calendar days.
func (d DateKey) AddDays(n int) DateKey {
	return DateKeyOf(d.Time().AddDate(0, 0, n))
}

func (d DateKey) MonthDay() MonthDay {
	return MonthDay{Month: d.Month(), Day: d.Day()}
}

func (d DateKey) String() string {
	return fmt.Sprintf("%08d", int(d))
}

func (d DateKey) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DateKey) UnmarshalText(text []byte) error {
	parsed, err := ParseDateKey(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *DateKey) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// DaysBetween iterates every date from first to last inclusive.
func DaysBetween(first, last DateKey, fn func(DateKey) error) error {
	for d := first; d <= last; d = d.AddDays(1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}
