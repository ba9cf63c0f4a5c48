package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/clock"
)

const testBundle = "../../internal/feed/testdata/bundle"

func runIndexgen(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newAppWithClock(&out, clock.NewMockClock(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)))
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"indexgen"}, args...))
	return out.String(), err
}

func TestHorizonEnd(t *testing.T) {
	tests := []struct {
		from    string
		horizon string
		want    string
	}{
		{"20240101", "P1Y", "20241231"},
		{"20240108", "P14D", "20240121"},
		{"20240108", "P1D", "20240108"},
		{"20240301", "P1W", "20240307"},
	}
	for _, tt := range tests {
		t.Run(tt.horizon, func(t *testing.T) {
			got, err := horizonEnd(calendar.MustParseDateKey(tt.from), tt.horizon)
			require.NoError(t, err)
			assert.Equal(t, calendar.MustParseDateKey(tt.want), got)
		})
	}

	for _, bad := range []string{"PT1H", "one year", ""} {
		_, err := horizonEnd(calendar.MustParseDateKey("20240101"), bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildReproducesBundledIndex(t *testing.T) {
	outDir := t.TempDir()
	out, err := runIndexgen(t, "build", "--data", testBundle, "--horizon", "P14D", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 14 dates (20240108..20240121)")

	built, err := os.ReadFile(filepath.Join(outDir, indexFileName))
	require.NoError(t, err)
	bundled, err := os.ReadFile(filepath.Join(testBundle, indexFileName))
	require.NoError(t, err)

	var gotIndex, wantIndex map[string][]string
	require.NoError(t, json.Unmarshal(built, &gotIndex))
	require.NoError(t, json.Unmarshal(bundled, &wantIndex))
	assert.Equal(t, wantIndex, gotIndex)

	csvData, err := os.ReadFile(filepath.Join(outDir, csvFileName))
	require.NoError(t, err)
	var rows []calendarDateRow
	require.NoError(t, gocsv.UnmarshalBytes(csvData, &rows))
	require.Len(t, rows, 16)
	assert.Equal(t, calendarDateRow{ServiceID: "WD", Date: "20240108", ExceptionType: 1}, rows[0])
	assert.Equal(t, calendarDateRow{ServiceID: "FRI", Date: "20240112", ExceptionType: 1}, rows[4])
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := runIndexgen(t, "build", "--data", testBundle, "--from", "2024-01-08", "--out", t.TempDir())
	assert.Error(t, err)

	_, err = runIndexgen(t, "build", "--data", testBundle, "--horizon", "soon", "--out", t.TempDir())
	assert.ErrorContains(t, err, "invalid horizon")

	_, err = runIndexgen(t, "build", "--out", t.TempDir())
	assert.ErrorContains(t, err, "data")
}

func TestVerify(t *testing.T) {
	out, err := runIndexgen(t, "verify", "--data", testBundle)
	require.NoError(t, err)
	assert.Contains(t, out, "index agrees with the calendar rules on 20240108..20240121")

	t.Run("reports mismatches", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.CopyFS(dir, os.DirFS(testBundle)))
		index := `{"20240108": ["WD"], "20240109": ["WD", "SAT"], "20240110": ["XX"]}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, indexFileName), []byte(index), 0o644))

		out, err := runIndexgen(t, "verify", "--data", dir)
		require.Error(t, err)
		var exit cli.ExitCoder
		require.ErrorAs(t, err, &exit)
		assert.Equal(t, 1, exit.ExitCode())
		assert.Contains(t, out, "20240109 SAT: index=true rules=false")
		assert.Contains(t, out, "20240110 WD: index=false rules=true")
		assert.Contains(t, out, "20240110 XX: unknown service pattern")
	})

	t.Run("needs an index", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.CopyFS(dir, os.DirFS(testBundle)))
		require.NoError(t, os.Remove(filepath.Join(dir, indexFileName)))

		_, err := runIndexgen(t, "verify", "--data", dir)
		var exit cli.ExitCoder
		require.ErrorAs(t, err, &exit)
		assert.Equal(t, 2, exit.ExitCode())
	})
}

func TestGrids(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "grids.json")
	out, err := runIndexgen(t, "grids", "--data", testBundle, "--workers", "3", "--out", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 6 stop timetables")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var results []struct {
		SubrouteID string `json:"subrouteId"`
		StopID     string `json:"stopId"`
	}
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 6)
	assert.Equal(t, "R1-0", results[0].SubrouteID)
	assert.Equal(t, "s1", results[0].StopID)
	assert.Equal(t, "R1-1", results[5].SubrouteID)
}
