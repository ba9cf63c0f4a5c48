package timetabledb

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
)

// Client is the main entry point for the store.
type Client struct {
	config        Config
	DB            *sql.DB
	Queries       *Queries
	importRuntime time.Duration
}

// NewClient opens (or creates) the database and applies the schema.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	} else if config.verbose {
		slog.Default().Debug("timetable store ready", slog.String("path", config.DBPath))
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// LastImportDuration is how long the most recent import took.
func (c *Client) LastImportDuration() time.Duration {
	return c.importRuntime
}
