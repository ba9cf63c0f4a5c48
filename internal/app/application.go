package app

import (
	"log/slog"
	"time"

	"timetable.intermodal.org/internal/appconf"
	"timetable.intermodal.org/internal/clock"
	"timetable.intermodal.org/internal/feed"
	"timetable.intermodal.org/internal/metrics"
)

// Application holds the dependencies shared by the HTTP handlers, helpers
// and middleware.
type Application struct {
	Config     appconf.Config
	FeedConfig feed.Config
	Logger     *slog.Logger
	Feed       *feed.Manager
	Clock      clock.Clock
	Metrics    *metrics.Metrics
}

// Location is the operator's time zone; service dates and clock readings
// are taken in it.
func (app *Application) Location() *time.Location {
	if app.FeedConfig.Location != nil {
		return app.FeedConfig.Location
	}
	return time.Local
}
