package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/senseyeio/duration"
	"timetable.intermodal.org/internal/appconf"
)

// DefaultTimezone is the operator's local zone, used when the config does
// not name one.
const DefaultTimezone = "Europe/Lisbon"

// Config holds the feed settings for the manager.
type Config struct {
	// DataPath is either a bundle directory or a GTFS zip file.
	DataPath string
	// DBPath is the sqlite store; ":memory:" keeps it in process.
	DBPath string
	// PeriodsFile overrides the bundle's periods.yaml.
	PeriodsFile    string
	Location       *time.Location
	ReloadInterval time.Duration
	Env            appconf.Environment
	Verbose        bool
}

func (config Config) isGTFS() bool {
	return isGTFSPath(config.DataPath)
}

func isGTFSPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zip")
}

func (config Config) dbPath() string {
	if config.DBPath == "" {
		return ":memory:"
	}
	return config.DBPath
}

// ParseReloadInterval reads an ISO 8601 duration such as "PT6H" or "P1D".
// An empty string disables periodic reloads.
func ParseReloadInterval(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := duration.ParseISO8601(s)
	if err != nil {
		return 0, fmt.Errorf("invalid reload interval %q: %w", s, err)
	}
	ref := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	interval := d.Shift(ref).Sub(ref)
	if interval < time.Minute {
		return 0, fmt.Errorf("reload interval %q is shorter than one minute", s)
	}
	return interval, nil
}

// ConfigFromData turns the file-level settings into a Config.
func ConfigFromData(d appconf.FeedConfigData) (Config, error) {
	tz := d.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	interval, err := ParseReloadInterval(d.ReloadInterval)
	if err != nil {
		return Config{}, err
	}
	return Config{
		DataPath:       d.DataPath,
		DBPath:         d.DBPath,
		PeriodsFile:    d.PeriodsFile,
		Location:       loc,
		ReloadInterval: interval,
		Env:            d.Env,
		Verbose:        d.Verbose,
	}, nil
}
