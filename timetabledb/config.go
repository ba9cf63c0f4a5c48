package timetabledb

import "timetable.intermodal.org/internal/appconf"

const defaultBulkInsertBatchSize = 500

// Config controls where the store lives and how it imports.
type Config struct {
	DBPath string
	Env    appconf.Environment

	// BulkInsertBatchSize is the number of rows per multi-row INSERT. SQLite
	// caps bound parameters, so rows*columns must stay under 32766.
	BulkInsertBatchSize int

	verbose bool
}

func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}
}

func (c Config) GetBulkInsertBatchSize() int {
	if c.BulkInsertBatchSize <= 0 {
		return defaultBulkInsertBatchSize
	}
	return c.BulkInsertBatchSize
}
