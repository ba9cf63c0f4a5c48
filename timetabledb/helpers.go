package timetabledb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"timetable.intermodal.org/internal/appconf"
	"timetable.intermodal.org/internal/logging"
)

//go:embed schema.sql
var ddl string

// createDB opens the SQLite database and brings its schema up to date.
func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := configureSQLitePerformance(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}
	if err := performDatabaseMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	configureConnectionPool(db, config)
	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

// configureSQLitePerformance applies the PRAGMA settings used for bulk
// imports and read-heavy serving.
func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		name        string
		description string
	}{
		{"PRAGMA cache_size=-64000", "Set cache size to 64MB"},
		{"PRAGMA temp_store=MEMORY", "Store temporary data in memory"},
	}

	logger := slog.Default().With(slog.String("component", "sqlite_performance"))
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma.name); err != nil {
			logging.LogError(logger, fmt.Sprintf("Failed to set %s", pragma.description), err)
			return fmt.Errorf("failed to execute %s: %w", pragma.name, err)
		}
	}
	return nil
}

// configureConnectionPool limits :memory: databases to one connection, since
// every connection to :memory: opens a separate empty database.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// Dataset is everything one feed import writes.
type Dataset struct {
	ServicePatterns    []ServicePattern
	ServiceDates       []ServiceDate
	Legend             []LegendEntry
	Routes             []Route
	Subroutes          []Subroute
	Stops              []Stop
	SubrouteStops      []SubrouteStop
	StopDepartures     []StopDeparture
	SubrouteDepartures []SubrouteDeparture
}

// ImportDataset replaces the stored feed with ds in one transaction. When the
// stored feed already has the same hash and source the import is skipped and
// false is returned.
func (c *Client) ImportDataset(ctx context.Context, ds Dataset, source, hash string) (bool, error) {
	logger := slog.Default().With(slog.String("component", "timetable_importer"))

	startTime := time.Now()
	defer func() {
		c.importRuntime = time.Since(startTime)
	}()

	existing, err := c.Queries.GetImportMetadata(ctx)
	switch {
	case err == nil:
		if existing.FileHash == hash && existing.FileSource == source {
			logging.LogOperation(logger, "feed_unchanged_skipping_import",
				slog.String("hash", shortHash(hash)))
			return false, nil
		}
		logging.LogOperation(logger, "feed_changed_reimporting",
			slog.String("old_hash", shortHash(existing.FileHash)),
			slog.String("new_hash", shortHash(hash)))
	case errors.Is(err, sql.ErrNoRows):
	default:
		return false, fmt.Errorf("error checking import metadata: %w", err)
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "import_dataset")

	qtx := c.Queries.WithTx(tx)
	if err := clearAll(ctx, qtx); err != nil {
		return false, fmt.Errorf("error clearing existing data: %w", err)
	}
	if err := c.insertDataset(ctx, tx, qtx, ds); err != nil {
		return false, err
	}
	if err := qtx.UpsertImportMetadata(ctx, ImportMetadatum{
		FileHash:   hash,
		ImportTime: time.Now().Unix(),
		FileSource: source,
	}); err != nil {
		return false, fmt.Errorf("error updating import metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	logging.LogOperation(logger, "feed_import_completed",
		slog.String("source", source),
		slog.String("hash", shortHash(hash)),
		slog.Int("service_patterns", len(ds.ServicePatterns)),
		slog.Int("stop_departures", len(ds.StopDepartures)),
		slog.Duration("duration", time.Since(startTime)))
	return true, nil
}

func (c *Client) insertDataset(ctx context.Context, tx *sql.Tx, qtx *Queries, ds Dataset) error {
	for _, p := range ds.ServicePatterns {
		if err := qtx.CreateServicePattern(ctx, p); err != nil {
			return fmt.Errorf("unable to create service pattern %s: %w", p.ID, err)
		}
	}
	for _, l := range ds.Legend {
		if err := qtx.CreateLegendEntry(ctx, l); err != nil {
			return fmt.Errorf("unable to create legend entry %s: %w", l.Letter, err)
		}
	}
	for _, r := range ds.Routes {
		if err := qtx.CreateRoute(ctx, r); err != nil {
			return fmt.Errorf("unable to create route %s: %w", r.ID, err)
		}
	}
	for _, s := range ds.Subroutes {
		if err := qtx.CreateSubroute(ctx, s); err != nil {
			return fmt.Errorf("unable to create subroute %s: %w", s.ID, err)
		}
	}
	for _, s := range ds.Stops {
		if err := qtx.CreateStop(ctx, s); err != nil {
			return fmt.Errorf("unable to create stop %s: %w", s.ID, err)
		}
	}
	for _, ss := range ds.SubrouteStops {
		if err := qtx.CreateSubrouteStop(ctx, ss); err != nil {
			return fmt.Errorf("unable to create subroute stop %s/%d: %w", ss.SubrouteID, ss.StopSequence, err)
		}
	}

	batch := c.config.GetBulkInsertBatchSize()
	if err := bulkInsert(ctx, tx, "service_dates", []string{"date", "service_pattern_id"},
		ds.ServiceDates, batch, func(d ServiceDate) []any {
			return []any{d.Date, d.ServicePatternID}
		}); err != nil {
		return fmt.Errorf("unable to create service dates: %w", err)
	}
	if err := bulkInsert(ctx, tx, "stop_departures",
		[]string{"subroute_id", "stop_id", "stop_sequence", "departure_minutes", "service_pattern_id"},
		ds.StopDepartures, batch, func(d StopDeparture) []any {
			return []any{d.SubrouteID, d.StopID, d.StopSequence, d.DepartureMinutes, d.ServicePatternID}
		}); err != nil {
		return fmt.Errorf("unable to create stop departures: %w", err)
	}
	if err := bulkInsert(ctx, tx, "subroute_departures",
		[]string{"subroute_id", "departure_minutes", "service_pattern_id"},
		ds.SubrouteDepartures, batch, func(d SubrouteDeparture) []any {
			return []any{d.SubrouteID, d.DepartureMinutes, d.ServicePatternID}
		}); err != nil {
		return fmt.Errorf("unable to create subroute departures: %w", err)
	}
	return nil
}

// bulkInsert writes rows as multi-row INSERT statements of at most batchSize
// rows. Only placeholders carry values; table and column names are
// compile-time constants.
func bulkInsert[T any](ctx context.Context, tx *sql.Tx, table string, columns []string, rows []T, batchSize int, values func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	prefix := "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES "

	for start := 0; start < len(rows); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(rows))

		var query strings.Builder
		query.WriteString(prefix)
		args := make([]any, 0, (end-start)*len(columns))
		for i, row := range rows[start:end] {
			if i > 0 {
				query.WriteString(", ")
			}
			query.WriteString(placeholder)
			args = append(args, values(row)...)
		}
		if _, err := tx.ExecContext(ctx, query.String(), args...); err != nil {
			return fmt.Errorf("failed to insert %s batch: %w", table, err)
		}
	}

	logging.LogOperation(logger, "rows_inserted",
		slog.String("table", table),
		slog.Int("count", len(rows)))
	return nil
}

// clearAll deletes in reverse dependency order.
func clearAll(ctx context.Context, q *Queries) error {
	steps := []struct {
		table string
		fn    func(context.Context) error
	}{
		{"subroute_departures", q.ClearSubrouteDepartures},
		{"stop_departures", q.ClearStopDepartures},
		{"subroute_stops", q.ClearSubrouteStops},
		{"stops", q.ClearStops},
		{"subroutes", q.ClearSubroutes},
		{"routes", q.ClearRoutes},
		{"legend", q.ClearLegend},
		{"service_dates", q.ClearServiceDates},
		{"service_patterns", q.ClearServicePatterns},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("error clearing %s: %w", s.table, err)
		}
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ToNullString converts a string to sql.NullString, with empty strings
// becoming NULL.
func ToNullString(s string) sql.NullString {
	return toNullString(s)
}

// ToNullFloat64 converts an optional coordinate.
func ToNullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
