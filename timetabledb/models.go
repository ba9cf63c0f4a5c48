package timetabledb

import "database/sql"

type ImportMetadatum struct {
	FileHash   string
	ImportTime int64
	FileSource string
}

type ServicePattern struct {
	ID string
	// Cells is the 9-cell activity vector joined with commas.
	Cells string
}

type ServiceDate struct {
	Date             int64
	ServicePatternID string
}

type LegendEntry struct {
	Letter      string
	Description string
	Predicate   sql.NullString
}

type Route struct {
	ID   string
	Name string
}

type Subroute struct {
	ID       string
	RouteID  string
	Name     string
	Position int64
}

type Stop struct {
	ID   string
	Name string
	Lat  sql.NullFloat64
	Lon  sql.NullFloat64
}

type SubrouteStop struct {
	SubrouteID   string
	StopSequence int64
	StopID       string
}

type StopDeparture struct {
	SubrouteID       string
	StopID           string
	StopSequence     int64
	DepartureMinutes int64
	ServicePatternID string
}

type SubrouteDeparture struct {
	SubrouteID       string
	DepartureMinutes int64
	ServicePatternID string
}
