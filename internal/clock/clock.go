// Package clock abstracts "now" so that a request can read the time once and
// thread that single reading through every timetable computation.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a settable, goroutine-safe clock for tests.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the clock by d, which may be negative.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// EnvironmentClock pins "now" from an environment variable or a file so a
// deployment can be pointed at a past or future service day.
// Priority: environment variable, then file, then system time.
type EnvironmentClock struct {
	envVar   string
	filePath string
	location *time.Location
}

func NewEnvironmentClock(envVar string, filePath string, location *time.Location) *EnvironmentClock {
	return &EnvironmentClock{envVar: envVar, filePath: filePath, location: location}
}

func (e *EnvironmentClock) Now() time.Time {
	if t, err := e.fromEnv(); err == nil {
		return t
	}
	if t, err := e.fromFile(); err == nil {
		return t
	}
	slog.Warn("environment clock has no usable source, using system time",
		slog.String("envVar", e.envVar), slog.String("filePath", e.filePath))
	return time.Now()
}

func (e *EnvironmentClock) fromEnv() (time.Time, error) {
	if e.envVar == "" {
		return time.Time{}, errors.New("environment variable name not configured")
	}
	value := os.Getenv(e.envVar)
	if value == "" {
		return time.Time{}, errors.New("environment variable is empty: " + e.envVar)
	}
	return e.parse(value)
}

func (e *EnvironmentClock) fromFile() (time.Time, error) {
	if e.filePath == "" {
		return time.Time{}, errors.New("file path not configured")
	}
	data, err := os.ReadFile(e.filePath)
	if err != nil {
		return time.Time{}, err
	}
	return e.parse(string(data))
}

func (e *EnvironmentClock) parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if e.location == nil {
		return time.Time{}, errors.New("timezone not configured")
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, e.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: expected RFC3339, YYYY-MM-DD HH:MM[:SS] or YYYY-MM-DD", s)
}

// Reading is one observation of the clock in the operator's time zone.
type Reading struct {
	Time time.Time
	// Date is the calendar date as YYYYMMDD.
	Date string
	// Minutes since local midnight.
	Minutes int
}

// Capture reads c exactly once and converts the result to loc. A nil loc
// keeps the clock's own location.
func Capture(c Clock, loc *time.Location) Reading {
	now := c.Now()
	if loc != nil {
		now = now.In(loc)
	}
	return Reading{
		Time:    now,
		Date:    now.Format("20060102"),
		Minutes: now.Hour()*60 + now.Minute(),
	}
}
