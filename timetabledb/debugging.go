package timetabledb

import (
	"context"
	"fmt"
	"log/slog"

	"timetable.intermodal.org/internal/logging"
)

var countedTables = map[string]string{
	"import_metadata":     "SELECT COUNT(*) FROM import_metadata",
	"service_patterns":    "SELECT COUNT(*) FROM service_patterns",
	"service_dates":       "SELECT COUNT(*) FROM service_dates",
	"legend":              "SELECT COUNT(*) FROM legend",
	"routes":              "SELECT COUNT(*) FROM routes",
	"subroutes":           "SELECT COUNT(*) FROM subroutes",
	"stops":               "SELECT COUNT(*) FROM stops",
	"subroute_stops":      "SELECT COUNT(*) FROM subroute_stops",
	"stop_departures":     "SELECT COUNT(*) FROM stop_departures",
	"subroute_departures": "SELECT COUNT(*) FROM subroute_departures",
}

// TableCounts returns the row count of every known table present in the
// database. Unknown tables are ignored.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	rows, err := c.DB.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, table := range tables {
		query, ok := countedTables[table]
		if !ok {
			continue
		}
		var n int
		if err := c.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, nil
}
