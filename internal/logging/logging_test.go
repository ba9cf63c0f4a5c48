package logging

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewHandler(buf, Config{Format: "json", Level: slog.LevelDebug}))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		records = append(records, rec)
	}
	return records
}

func TestLogHTTPRequestLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{410, "WARN"},
		{503, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		LogHTTPRequest(captureLogger(&buf), "GET", "/api/current-time", tt.status, 1.5, slog.String("request_id", "abc"))

		records := decodeLines(t, &buf)
		require.Len(t, records, 1)
		assert.Equal(t, tt.level, records[0]["level"])
		assert.Equal(t, "http_request", records[0]["msg"])
		assert.Equal(t, float64(tt.status), records[0]["status"])
		assert.Equal(t, "abc", records[0]["request_id"])
	}
}

func TestLogOperationAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	LogOperation(logger, "feed_loaded", slog.Int("patterns", 12))
	LogError(logger, "feed load failed", errors.New("boom"), slog.String("source", "bundle"))
	LogError(logger, "nil error", nil)

	records := decodeLines(t, &buf)
	require.Len(t, records, 3)
	assert.Equal(t, "feed_loaded", records[0]["msg"])
	assert.Equal(t, float64(12), records[0]["patterns"])
	assert.Equal(t, "boom", records[1]["error"])
	assert.Equal(t, "bundle", records[1]["source"])
	assert.Equal(t, "<nil>", records[2]["error"])

	assert.NotPanics(t, func() {
		LogOperation(nil, "ignored")
		LogError(nil, "ignored", errors.New("x"))
	})
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	assert.Same(t, slog.Default(), FromContext(context.Background()))
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("close failed") }

func TestSafeCloseWithLogging(t *testing.T) {
	var buf bytes.Buffer
	SafeCloseWithLogging(failingCloser{}, captureLogger(&buf), "bundle_file")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "bundle_file", records[0]["resource"])
	assert.Equal(t, "close failed", records[0]["error"])
}

func TestSafeRollbackIgnoresCommittedTx(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var buf bytes.Buffer
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	SafeRollbackWithLogging(tx, captureLogger(&buf), "import")
	assert.Empty(t, buf.String())
}

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.log")
	logger, closer := NewLogger(Config{Format: "text", Level: slog.LevelInfo, File: path})
	logger.Info("hello", slog.String("component", "test"))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
	assert.Contains(t, string(data), "component=test")
}
