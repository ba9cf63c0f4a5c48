package restapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"timetable.intermodal.org/internal/app"
	"timetable.intermodal.org/internal/appconf"
	"timetable.intermodal.org/internal/clock"
	"timetable.intermodal.org/internal/feed"
	"timetable.intermodal.org/internal/metrics"
	"timetable.intermodal.org/internal/models"
)

const testBundle = "../feed/testdata/bundle"

var lisbon = mustLoadLocation("Europe/Lisbon")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// fridayNoon is inside the test bundle's service window, on a school-term
// Friday when both WD and FRI run.
func fridayNoon() time.Time {
	return time.Date(2024, 1, 12, 12, 0, 0, 0, lisbon)
}

func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	return createTestApiWithClock(t, clock.NewMockClock(fridayNoon()))
}

func createTestApiWithClock(t *testing.T, c clock.Clock) *RestAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	feedConfig := feed.Config{
		DataPath: testBundle,
		DBPath:   ":memory:",
		Location: lisbon,
		Env:      appconf.Test,
	}
	m := metrics.New()
	manager, err := feed.InitManager(context.Background(), feedConfig, m, logger)
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)

	api := NewRestAPI(&app.Application{
		Config: appconf.Config{
			Env:       appconf.Test,
			ApiKeys:   []string{"TEST"},
			RateLimit: 100,
		},
		FeedConfig: feedConfig,
		Logger:     logger,
		Feed:       manager,
		Clock:      c,
		Metrics:    m,
	})
	t.Cleanup(api.Shutdown)
	return api
}

func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(api.Handler(mux))
	defer server.Close()

	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var model models.ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	return resp, model
}

func serveAndRetrieveEndpoint(t *testing.T, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	t.Helper()
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, endpoint)
	return api, resp, model
}

// entryOf digs data.entry out of a decoded response.
func entryOf(t *testing.T, model models.ResponseModel) map[string]any {
	t.Helper()
	data, ok := model.Data.(map[string]any)
	require.True(t, ok, "data is %T", model.Data)
	entry, ok := data["entry"].(map[string]any)
	require.True(t, ok, "entry is %T", data["entry"])
	return entry
}

func listOf(t *testing.T, model models.ResponseModel) []any {
	t.Helper()
	data, ok := model.Data.(map[string]any)
	require.True(t, ok, "data is %T", model.Data)
	list, ok := data["list"].([]any)
	require.True(t, ok, "list is %T", data["list"])
	return list
}

func serveRecorder(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}
