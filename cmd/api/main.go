package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"timetable.intermodal.org/internal/appconf"
	"timetable.intermodal.org/internal/buildinfo"
	"timetable.intermodal.org/internal/feed"
	"timetable.intermodal.org/internal/logging"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "timetable-api",
		Usage:   "serve timetable grids and next departures over HTTP",
		Version: fmt.Sprintf("%s (%s)", buildinfo.Version, buildinfo.ShortHash()),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "JSON or YAML config file; other flags are ignored when set"},
			&cli.IntFlag{Name: "port", Value: 4000, Usage: "API server port"},
			&cli.StringFlag{Name: "env", Value: "development", Usage: "development, test or production"},
			&cli.StringFlag{Name: "api-keys", Value: "test", Usage: "comma separated API keys"},
			&cli.StringFlag{Name: "exempt-api-keys", Usage: "comma separated keys exempt from rate limiting"},
			&cli.IntFlag{Name: "rate-limit", Value: 100, Usage: "requests per second per API key"},
			&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
			&cli.StringFlag{Name: "log-format", Value: "json", Usage: "json or text"},
			&cli.StringFlag{Name: "log-file", Usage: "write a rotated log file instead of stdout"},
			&cli.StringFlag{Name: "data-path", Usage: "timetable bundle directory or GTFS zip"},
			&cli.StringFlag{Name: "db-path", Value: "timetable.db", Usage: "sqlite store path"},
			&cli.StringFlag{Name: "periods-file", Usage: "YAML calendar of summer, school terms and holidays"},
			&cli.StringFlag{Name: "timezone", Value: feed.DefaultTimezone, Usage: "operator time zone"},
			&cli.StringFlag{Name: "reload-interval", Usage: "ISO 8601 duration between reloads, e.g. PT6H"},
			&cli.StringFlag{Name: "assets-dir", Value: "assets", Usage: "directory of print page assets"},
		},
		Action: serve,
	}
}

// loadConfig reads the settings from --config when given, from the other
// flags otherwise.
func loadConfig(c *cli.Context) (appconf.Config, appconf.FeedConfigData, error) {
	if path := c.String("config"); path != "" {
		fileCfg, err := appconf.LoadFromFile(path)
		if err != nil {
			return appconf.Config{}, appconf.FeedConfigData{}, err
		}
		return fileCfg.ToAppConfig(), fileCfg.ToFeedConfigData(), nil
	}

	env := appconf.EnvFlagToEnvironment(c.String("env"))
	cfg := appconf.Config{
		Port:          c.Int("port"),
		Env:           env,
		ApiKeys:       ParseAPIKeys(c.String("api-keys")),
		ExemptApiKeys: ParseAPIKeys(c.String("exempt-api-keys")),
		RateLimit:     c.Int("rate-limit"),
		Verbose:       c.Bool("verbose"),
		LogFormat:     c.String("log-format"),
		LogFile:       c.String("log-file"),
	}
	feedData := appconf.FeedConfigData{
		DataPath:       c.String("data-path"),
		DBPath:         c.String("db-path"),
		PeriodsFile:    c.String("periods-file"),
		Timezone:       c.String("timezone"),
		ReloadInterval: c.String("reload-interval"),
		Env:            env,
		Verbose:        c.Bool("verbose"),
	}
	if feedData.DataPath == "" {
		return cfg, feedData, fmt.Errorf("--data-path or --config is required")
	}
	return cfg, feedData, nil
}

func serve(c *cli.Context) error {
	cfg, feedData, err := loadConfig(c)
	if err != nil {
		return err
	}
	feedCfg, err := feed.ConfigFromData(feedData)
	if err != nil {
		return err
	}

	logger, closeLog := logging.NewLogger(logging.Config{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel(),
		File:   cfg.LogFile,
	})
	defer logging.SafeCloseWithLogging(closeLog, logger, "log_file")

	coreApp, err := BuildApplication(cfg, feedCfg, logger)
	if err != nil {
		logging.LogError(logger, "failed to build application", err)
		return err
	}

	srv, api := CreateServer(coreApp, cfg, c.String("assets-dir"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, srv, coreApp, api)
}
