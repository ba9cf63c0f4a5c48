package timetabledb

import (
	"context"
	"database/sql"
)

const getImportMetadata = `SELECT file_hash, import_time, file_source FROM import_metadata WHERE id = 1`

func (q *Queries) GetImportMetadata(ctx context.Context) (ImportMetadatum, error) {
	var i ImportMetadatum
	err := q.db.QueryRowContext(ctx, getImportMetadata).Scan(&i.FileHash, &i.ImportTime, &i.FileSource)
	return i, err
}

const upsertImportMetadata = `
INSERT INTO import_metadata (id, file_hash, import_time, file_source)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    file_hash = excluded.file_hash,
    import_time = excluded.import_time,
    file_source = excluded.file_source
`

func (q *Queries) UpsertImportMetadata(ctx context.Context, arg ImportMetadatum) error {
	_, err := q.db.ExecContext(ctx, upsertImportMetadata, arg.FileHash, arg.ImportTime, arg.FileSource)
	return err
}

const createServicePattern = `INSERT INTO service_patterns (id, cells) VALUES (?, ?)`

func (q *Queries) CreateServicePattern(ctx context.Context, arg ServicePattern) error {
	_, err := q.db.ExecContext(ctx, createServicePattern, arg.ID, arg.Cells)
	return err
}

const createLegendEntry = `INSERT INTO legend (letter, description, predicate) VALUES (?, ?, ?)`

func (q *Queries) CreateLegendEntry(ctx context.Context, arg LegendEntry) error {
	_, err := q.db.ExecContext(ctx, createLegendEntry, arg.Letter, arg.Description, arg.Predicate)
	return err
}

const createRoute = `INSERT INTO routes (id, name) VALUES (?, ?)`

func (q *Queries) CreateRoute(ctx context.Context, arg Route) error {
	_, err := q.db.ExecContext(ctx, createRoute, arg.ID, arg.Name)
	return err
}

const createSubroute = `INSERT INTO subroutes (id, route_id, name, position) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateSubroute(ctx context.Context, arg Subroute) error {
	_, err := q.db.ExecContext(ctx, createSubroute, arg.ID, arg.RouteID, arg.Name, arg.Position)
	return err
}

const createStop = `INSERT INTO stops (id, name, lat, lon) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateStop(ctx context.Context, arg Stop) error {
	_, err := q.db.ExecContext(ctx, createStop, arg.ID, arg.Name, arg.Lat, arg.Lon)
	return err
}

const createSubrouteStop = `INSERT INTO subroute_stops (subroute_id, stop_sequence, stop_id) VALUES (?, ?, ?)`

func (q *Queries) CreateSubrouteStop(ctx context.Context, arg SubrouteStop) error {
	_, err := q.db.ExecContext(ctx, createSubrouteStop, arg.SubrouteID, arg.StopSequence, arg.StopID)
	return err
}

const listServicePatterns = `SELECT id, cells FROM service_patterns ORDER BY id`

func (q *Queries) ListServicePatterns(ctx context.Context) ([]ServicePattern, error) {
	rows, err := q.db.QueryContext(ctx, listServicePatterns)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // checked through rows.Close below
	var items []ServicePattern
	for rows.Next() {
		var i ServicePattern
		if err := rows.Scan(&i.ID, &i.Cells); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const listPatternsOnDate = `SELECT service_pattern_id FROM service_dates WHERE date = ? ORDER BY service_pattern_id`

func (q *Queries) ListPatternsOnDate(ctx context.Context, date int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPatternsOnDate, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // checked through rows.Close below
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const getServiceDateRange = `SELECT MIN(date), MAX(date) FROM service_dates`

// GetServiceDateRange returns the first and last indexed dates; both are
// invalid when the index is empty.
func (q *Queries) GetServiceDateRange(ctx context.Context) (sql.NullInt64, sql.NullInt64, error) {
	var first, last sql.NullInt64
	err := q.db.QueryRowContext(ctx, getServiceDateRange).Scan(&first, &last)
	return first, last, err
}

const listLegend = `SELECT letter, description, predicate FROM legend ORDER BY letter`

func (q *Queries) ListLegend(ctx context.Context) ([]LegendEntry, error) {
	rows, err := q.db.QueryContext(ctx, listLegend)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // checked through rows.Close below
	var items []LegendEntry
	for rows.Next() {
		var i LegendEntry
		if err := rows.Scan(&i.Letter, &i.Description, &i.Predicate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const getRoute = `SELECT id, name FROM routes WHERE id = ?`

func (q *Queries) GetRoute(ctx context.Context, id string) (Route, error) {
	var i Route
	err := q.db.QueryRowContext(ctx, getRoute, id).Scan(&i.ID, &i.Name)
	return i, err
}

const listSubroutesForRoute = `SELECT id, route_id, name, position FROM subroutes WHERE route_id = ? ORDER BY position, id`

func (q *Queries) ListSubroutesForRoute(ctx context.Context, routeID string) ([]Subroute, error) {
	rows, err := q.db.QueryContext(ctx, listSubroutesForRoute, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // checked through rows.Close below
	var items []Subroute
	for rows.Next() {
		var i Subroute
		if err := rows.Scan(&i.ID, &i.RouteID, &i.Name, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const listSubrouteStops = `
SELECT s.id, s.name, s.lat, s.lon
FROM subroute_stops ss
JOIN stops s ON s.id = ss.stop_id
WHERE ss.subroute_id = ?
ORDER BY ss.stop_sequence
`

// ListSubrouteStops returns the stops of a subroute in calling order. A stop
// visited twice appears twice.
func (q *Queries) ListSubrouteStops(ctx context.Context, subrouteID string) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, listSubrouteStops, subrouteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // checked through rows.Close below
	var items []Stop
	for rows.Next() {
		var i Stop
		if err := rows.Scan(&i.ID, &i.Name, &i.Lat, &i.Lon); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const getStopDepartures = `
SELECT subroute_id, stop_id, stop_sequence, departure_minutes, service_pattern_id
FROM stop_departures
WHERE subroute_id = ? AND stop_id = ?
ORDER BY departure_minutes, service_pattern_id
`

type GetStopDeparturesParams struct {
	SubrouteID string
	StopID     string
}

func (q *Queries) GetStopDepartures(ctx context.Context, arg GetStopDeparturesParams) ([]StopDeparture, error) {
	rows, err := q.db.QueryContext(ctx, getStopDepartures, arg.SubrouteID, arg.StopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // checked through rows.Close below
	var items []StopDeparture
	for rows.Next() {
		var i StopDeparture
		if err := rows.Scan(&i.SubrouteID, &i.StopID, &i.StopSequence, &i.DepartureMinutes, &i.ServicePatternID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const getRouteDepartures = `
SELECT d.subroute_id, d.departure_minutes, d.service_pattern_id
FROM subroute_departures d
JOIN subroutes s ON s.id = d.subroute_id
WHERE s.route_id = ?
ORDER BY s.position, d.departure_minutes, d.service_pattern_id
`

func (q *Queries) GetRouteDepartures(ctx context.Context, routeID string) ([]SubrouteDeparture, error) {
	rows, err := q.db.QueryContext(ctx, getRouteDepartures, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // checked through rows.Close below
	var items []SubrouteDeparture
	for rows.Next() {
		var i SubrouteDeparture
		if err := rows.Scan(&i.SubrouteID, &i.DepartureMinutes, &i.ServicePatternID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

func (q *Queries) ClearSubrouteDepartures(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM subroute_departures`)
	return err
}

func (q *Queries) ClearStopDepartures(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM stop_departures`)
	return err
}

func (q *Queries) ClearSubrouteStops(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM subroute_stops`)
	return err
}

func (q *Queries) ClearStops(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM stops`)
	return err
}

func (q *Queries) ClearSubroutes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM subroutes`)
	return err
}

func (q *Queries) ClearRoutes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM routes`)
	return err
}

func (q *Queries) ClearLegend(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM legend`)
	return err
}

func (q *Queries) ClearServiceDates(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM service_dates`)
	return err
}

func (q *Queries) ClearServicePatterns(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM service_patterns`)
	return err
}
