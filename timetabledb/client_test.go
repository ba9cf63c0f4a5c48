package timetabledb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"timetable.intermodal.org/internal/appconf"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func fixtureDataset() Dataset {
	lat, lon := 38.52, -8.89
	return Dataset{
		ServicePatterns: []ServicePattern{
			{ID: "A", Cells: "1,1,0,1,1,0,1,0,0"},
			{ID: "B", Cells: "0,0,1,0,0,1,0,0,1C"},
		},
		ServiceDates: []ServiceDate{
			{Date: 20240115, ServicePatternID: "A"},
			{Date: 20240116, ServicePatternID: "A"},
			{Date: 20240121, ServicePatternID: "B"},
		},
		Legend: []LegendEntry{
			{Letter: "C", Description: "Not on Christmas", Predicate: ToNullString(`!(month == 12 && day == 25)`)},
		},
		Routes:    []Route{{ID: "R1", Name: "Centro"}},
		Subroutes: []Subroute{{ID: "R1-0", RouteID: "R1", Name: "Centro - Praia", Position: 0}, {ID: "R1-1", RouteID: "R1", Name: "Praia - Centro", Position: 1}},
		Stops: []Stop{
			{ID: "s1", Name: "Centro", Lat: ToNullFloat64(&lat), Lon: ToNullFloat64(&lon)},
			{ID: "s2", Name: "Praia"},
		},
		SubrouteStops: []SubrouteStop{
			{SubrouteID: "R1-0", StopSequence: 0, StopID: "s1"},
			{SubrouteID: "R1-0", StopSequence: 1, StopID: "s2"},
			{SubrouteID: "R1-1", StopSequence: 0, StopID: "s2"},
		},
		StopDepartures: []StopDeparture{
			{SubrouteID: "R1-0", StopID: "s1", StopSequence: 0, DepartureMinutes: 500, ServicePatternID: "B"},
			{SubrouteID: "R1-0", StopID: "s1", StopSequence: 0, DepartureMinutes: 480, ServicePatternID: "A"},
			{SubrouteID: "R1-0", StopID: "s1", StopSequence: 0, DepartureMinutes: 480, ServicePatternID: "B"},
			{SubrouteID: "R1-0", StopID: "s2", StopSequence: 1, DepartureMinutes: 495, ServicePatternID: "A"},
		},
		SubrouteDepartures: []SubrouteDeparture{
			{SubrouteID: "R1-1", DepartureMinutes: 600, ServicePatternID: "A"},
			{SubrouteID: "R1-0", DepartureMinutes: 480, ServicePatternID: "A"},
			{SubrouteID: "R1-0", DepartureMinutes: 500, ServicePatternID: "B"},
		},
	}
}

func TestCreateDBRejectsFileInTestEnv(t *testing.T) {
	_, err := NewClient(NewConfig("/tmp/timetable.db", appconf.Test, false))
	assert.ErrorContains(t, err, "test database must use in-memory storage")
}

func TestImportDatasetAndQueries(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	client.config.BulkInsertBatchSize = 2

	imported, err := client.ImportDataset(ctx, fixtureDataset(), "bundle", "abcdef0123456789")
	require.NoError(t, err)
	assert.True(t, imported)

	meta, err := client.Queries.GetImportMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abcdef0123456789", meta.FileHash)
	assert.Equal(t, "bundle", meta.FileSource)

	patterns, err := client.Queries.ListServicePatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "A", patterns[0].ID)

	onDate, err := client.Queries.ListPatternsOnDate(ctx, 20240115)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, onDate)

	first, last, err := client.Queries.GetServiceDateRange(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20240115), first.Int64)
	assert.Equal(t, int64(20240121), last.Int64)

	legend, err := client.Queries.ListLegend(ctx)
	require.NoError(t, err)
	require.Len(t, legend, 1)
	assert.True(t, legend[0].Predicate.Valid)

	deps, err := client.Queries.GetStopDepartures(ctx, GetStopDeparturesParams{SubrouteID: "R1-0", StopID: "s1"})
	require.NoError(t, err)
	require.Len(t, deps, 3)
	assert.Equal(t, int64(480), deps[0].DepartureMinutes)
	assert.Equal(t, "A", deps[0].ServicePatternID)
	assert.Equal(t, "B", deps[1].ServicePatternID)
	assert.Equal(t, int64(500), deps[2].DepartureMinutes)

	routeDeps, err := client.Queries.GetRouteDepartures(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, routeDeps, 3)
	assert.Equal(t, "R1-0", routeDeps[0].SubrouteID)
	assert.Equal(t, "R1-1", routeDeps[2].SubrouteID)

	stops, err := client.Queries.ListSubrouteStops(ctx, "R1-0")
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.True(t, stops[0].Lat.Valid)
	assert.False(t, stops[1].Lat.Valid)

	subroutes, err := client.Queries.ListSubroutesForRoute(ctx, "R1")
	require.NoError(t, err)
	assert.Len(t, subroutes, 2)

	_, err = client.Queries.GetRoute(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestImportDatasetSkipsUnchangedFeed(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.ImportDataset(ctx, fixtureDataset(), "bundle", "hash-1")
	require.NoError(t, err)

	imported, err := client.ImportDataset(ctx, fixtureDataset(), "bundle", "hash-1")
	require.NoError(t, err)
	assert.False(t, imported)

	smaller := fixtureDataset()
	smaller.StopDepartures = smaller.StopDepartures[:1]
	imported, err = client.ImportDataset(ctx, smaller, "bundle", "hash-2")
	require.NoError(t, err)
	assert.True(t, imported)

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["stop_departures"])
	assert.Equal(t, 2, counts["service_patterns"])
	assert.Equal(t, 1, counts["import_metadata"])
}

func TestImportDatasetRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.ImportDataset(ctx, fixtureDataset(), "bundle", "good")
	require.NoError(t, err)

	broken := fixtureDataset()
	broken.Routes = append(broken.Routes, Route{ID: "R1", Name: "duplicate"})
	_, err = client.ImportDataset(ctx, broken, "bundle", "bad")
	require.Error(t, err)

	meta, err := client.Queries.GetImportMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good", meta.FileHash)

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["routes"])
}

func TestTableCountsIgnoresUnknownTables(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.DB.ExecContext(ctx, `CREATE TABLE scratch (id TEXT); INSERT INTO scratch VALUES ('x')`)
	require.NoError(t, err)

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	_, exists := counts["scratch"]
	assert.False(t, exists)
	assert.Equal(t, 0, counts["routes"])
}
