package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"timetable.intermodal.org/internal/app"
	"timetable.intermodal.org/internal/appconf"
	"timetable.intermodal.org/internal/clock"
	"timetable.intermodal.org/internal/feed"
	"timetable.intermodal.org/internal/logging"
	"timetable.intermodal.org/internal/metrics"
	"timetable.intermodal.org/internal/restapi"
	"timetable.intermodal.org/internal/webui"
)

// clockOverrideEnv pins the server clock, e.g. "2024-01-12 08:00", for
// checking a deployment against a known service day.
const clockOverrideEnv = "TIMETABLE_NOW"

const dbStatsInterval = 15 * time.Second

// ParseAPIKeys splits a comma-separated key list.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	keys := strings.Split(s, ",")
	for i, k := range keys {
		keys[i] = strings.TrimSpace(k)
	}
	return keys
}

// BuildApplication loads the feed and wires the shared dependencies.
func BuildApplication(cfg appconf.Config, feedCfg feed.Config, logger *slog.Logger) (*app.Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.NewWithLogger(logger)

	manager, err := feed.InitManager(context.Background(), feedCfg, m, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feed manager: %w", err)
	}
	m.StartDBStatsCollector(manager.Store().DB, dbStatsInterval)

	var c clock.Clock = clock.RealClock{}
	if os.Getenv(clockOverrideEnv) != "" {
		c = clock.NewEnvironmentClock(clockOverrideEnv, "", feedCfg.Location)
		logging.LogOperation(logger, "clock_pinned_from_environment", slog.String("env", clockOverrideEnv))
	}

	return &app.Application{
		Config:     cfg,
		FeedConfig: feedCfg,
		Logger:     logger,
		Feed:       manager,
		Clock:      c,
		Metrics:    m,
	}, nil
}

// CreateServer builds the HTTP server with every route and the shared
// middleware stack.
func CreateServer(coreApp *app.Application, cfg appconf.Config, assetsDir string) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)
	ui := &webui.WebUI{Application: coreApp, AssetsDir: assetsDir}

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	ui.SetWebUIRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api
}

// Run serves until ctx is cancelled, then drains connections and releases
// the feed, the store and the metrics collector.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger
	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting",
			slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case err := <-serverErr:
		runErr = err
	case <-ctx.Done():
		logging.LogOperation(logger, "server_shutting_down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server shutdown failed", err)
		runErr = errors.Join(runErr, err)
	}

	api.Shutdown()
	coreApp.Feed.Shutdown()
	coreApp.Metrics.Shutdown()
	logging.LogOperation(logger, "server_stopped")
	return runErr
}
