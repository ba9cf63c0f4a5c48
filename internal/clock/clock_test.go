package clock

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClockTracksSystemTime(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 23, 50, 0, 0, time.UTC)
	c := NewMockClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(15 * time.Minute)
	assert.Equal(t, start.Add(15*time.Minute), c.Now())

	c.Advance(-time.Hour)
	assert.Equal(t, start.Add(-45*time.Minute), c.Now())

	other := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	c.Set(other)
	assert.Equal(t, other, c.Now())
}

func TestMockClockConcurrentAccess(t *testing.T) {
	c := NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
		go func() {
			defer wg.Done()
			c.Advance(time.Minute)
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Date(2024, 1, 1, 0, 50, 0, 0, time.UTC), c.Now())
}

func TestCapture(t *testing.T) {
	lisbon, err := time.LoadLocation("Europe/Lisbon")
	require.NoError(t, err)

	tests := []struct {
		name        string
		now         time.Time
		loc         *time.Location
		wantDate    string
		wantMinutes int
	}{
		{
			name:        "evening",
			now:         time.Date(2024, 1, 15, 23, 50, 0, 0, time.UTC),
			loc:         lisbon,
			wantDate:    "20240115",
			wantMinutes: 1430,
		},
		{
			name:        "summer time moves the date",
			now:         time.Date(2024, 7, 1, 23, 30, 0, 0, time.UTC),
			loc:         lisbon,
			wantDate:    "20240702",
			wantMinutes: 30,
		},
		{
			name:        "nil location keeps the clock zone",
			now:         time.Date(2024, 3, 3, 4, 10, 59, 0, time.UTC),
			wantDate:    "20240303",
			wantMinutes: 250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Capture(NewMockClock(tt.now), tt.loc)
			assert.Equal(t, tt.wantDate, r.Date)
			assert.Equal(t, tt.wantMinutes, r.Minutes)
			assert.True(t, r.Time.Equal(tt.now))
		})
	}
}

func TestEnvironmentClockFallsBackToSystemTime(t *testing.T) {
	c := NewEnvironmentClock("", "", time.UTC)
	before := time.Now()
	got := c.Now()
	assert.False(t, got.Before(before))
}

func TestEnvironmentClockSources(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "now.txt")
	require.NoError(t, os.WriteFile(file, []byte("2024-02-10 07:15\n"), 0o600))

	t.Run("file", func(t *testing.T) {
		c := NewEnvironmentClock("TIMETABLE_TEST_NOW_UNSET", file, time.UTC)
		assert.Equal(t, time.Date(2024, 2, 10, 7, 15, 0, 0, time.UTC), c.Now())
	})

	t.Run("env var wins over file", func(t *testing.T) {
		t.Setenv("TIMETABLE_TEST_NOW", "2024-03-01T12:00:00Z")
		c := NewEnvironmentClock("TIMETABLE_TEST_NOW", file, time.UTC)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), c.Now())
	})

	t.Run("invalid env var falls through to file", func(t *testing.T) {
		t.Setenv("TIMETABLE_TEST_NOW", "yesterday")
		c := NewEnvironmentClock("TIMETABLE_TEST_NOW", file, time.UTC)
		assert.Equal(t, time.Date(2024, 2, 10, 7, 15, 0, 0, time.UTC), c.Now())
	})
}

func TestEnvironmentClockParseLayouts(t *testing.T) {
	lisbon, err := time.LoadLocation("Europe/Lisbon")
	require.NoError(t, err)
	c := NewEnvironmentClock("", "", lisbon)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-07-01T10:00:00Z", time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-07-01 10:00:00", time.Date(2024, 7, 1, 10, 0, 0, 0, lisbon)},
		{"2024-07-01T10:00:00", time.Date(2024, 7, 1, 10, 0, 0, 0, lisbon)},
		{"2024-07-01 10:00", time.Date(2024, 7, 1, 10, 0, 0, 0, lisbon)},
		{"  2024-07-01  ", time.Date(2024, 7, 1, 0, 0, 0, 0, lisbon)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := c.parse(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err = c.parse("01/07/2024")
	assert.Error(t, err)

	_, err = NewEnvironmentClock("", "", nil).parse("2024-07-01")
	assert.ErrorContains(t, err, "timezone not configured")
}
