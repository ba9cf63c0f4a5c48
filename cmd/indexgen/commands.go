package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/senseyeio/duration"
	"github.com/urfave/cli/v2"
	"timetable.intermodal.org/internal/buildinfo"
	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/clock"
	"timetable.intermodal.org/internal/feed"
	"timetable.intermodal.org/internal/logging"
	"timetable.intermodal.org/internal/timetable"
)

const (
	indexFileName  = "date_service_ids.json"
	csvFileName    = "calendar_dates.csv"
	gridsFileName  = "grids.json"
	defaultHorizon = "P1Y"
)

// calendarDateRow is one line of a GTFS calendar_dates.txt style export.
type calendarDateRow struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int    `csv:"exception_type"`
}

type generator struct {
	out    io.Writer
	clock  clock.Clock
	logger *slog.Logger
}

func newApp(out io.Writer) *cli.App {
	return newAppWithClock(out, clock.RealClock{})
}

func newAppWithClock(out io.Writer, c clock.Clock) *cli.App {
	g := &generator{out: out, clock: c}

	feedFlags := []cli.Flag{
		&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Required: true, Usage: "bundle directory or GTFS zip"},
		&cli.StringFlag{Name: "periods", Usage: "YAML calendar overriding the bundle's periods"},
		&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
	}

	return &cli.App{
		Name:     "indexgen",
		Usage:    "precompute service indexes and timetable grids",
		Version:  buildinfo.Version,
		Writer:   out,
		Before:   g.setup,
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "resolve every date of a horizon by rule and write the index as JSON and CSV",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "first date, YYYYMMDD (default today)"},
					&cli.StringFlag{Name: "horizon", Value: defaultHorizon, Usage: "ISO 8601 duration covered from the first date"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "output directory"},
				}, feedFlags...),
				Action: g.build,
			},
			{
				Name:   "verify",
				Usage:  "check the bundled index against the calendar rules",
				Flags:  feedFlags,
				Action: g.verify,
			},
			{
				Name:  "grids",
				Usage: "render the grids of every stop of every subroute",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: gridsFileName, Usage: "output file"},
					&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "parallel renderers"},
				}, feedFlags...),
				Action: g.grids,
			},
		},
	}
}

func (g *generator) setup(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	g.logger = slog.New(logging.NewHandler(os.Stderr, logging.Config{Format: "text", Level: level}))
	return nil
}

func (g *generator) load(c *cli.Context) (*feed.Bundle, error) {
	return feed.Load(c.String("data"), c.String("periods"), g.logger)
}

// horizonEnd is the last date covered when the horizon starts on from.
func horizonEnd(from calendar.DateKey, horizon string) (calendar.DateKey, error) {
	d, err := duration.ParseISO8601(horizon)
	if err != nil {
		return 0, fmt.Errorf("invalid horizon %q: %w", horizon, err)
	}
	start := from.Time()
	end := d.Shift(start)
	if end.Before(start.AddDate(0, 0, 1)) {
		return 0, fmt.Errorf("horizon %q must be at least one day", horizon)
	}
	return calendar.DateKeyOf(end).AddDays(-1), nil
}

func (g *generator) build(c *cli.Context) error {
	bundle, err := g.load(c)
	if err != nil {
		return err
	}

	from := calendar.DateKeyOf(g.clock.Now())
	if s := c.String("from"); s != "" {
		if from, err = calendar.ParseDateKey(s); err != nil {
			return err
		}
	}
	to, err := horizonEnd(from, c.String("horizon"))
	if err != nil {
		return err
	}

	start := time.Now()
	index, err := bundle.Rules().BuildIndex(from, to)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	outDir := c.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, indexFileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	var rows []calendarDateRow
	for _, d := range index.Dates() {
		for _, id := range index.Patterns(d) {
			rows = append(rows, calendarDateRow{ServiceID: id, Date: d.String(), ExceptionType: 1})
		}
	}
	csvData, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return fmt.Errorf("failed to encode calendar dates: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, csvFileName), csvData, 0o644); err != nil {
		return fmt.Errorf("failed to write calendar dates: %w", err)
	}

	logging.LogOperation(g.logger, "index_built",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("dates", index.Len()),
		slog.Int("rows", len(rows)),
		slog.Duration("duration", time.Since(start)))
	_, _ = fmt.Fprintf(g.out, "wrote %d dates (%s..%s) to %s\n", index.Len(), from, to, outDir)
	return nil
}

func (g *generator) verify(c *cli.Context) error {
	bundle, err := g.load(c)
	if err != nil {
		return err
	}
	if bundle.Index == nil {
		return cli.Exit("feed has no precomputed index to verify", 2)
	}

	mismatches := calendar.CompareIndex(bundle.Index, bundle.Rules())
	window := bundle.Index.Window()
	if len(mismatches) == 0 {
		_, _ = fmt.Fprintf(g.out, "index agrees with the calendar rules on %s..%s\n", window.From, window.To)
		return nil
	}

	for _, m := range mismatches {
		if m.Err != "" {
			_, _ = fmt.Fprintf(g.out, "%s %s: %s\n", m.Date, m.PatternID, m.Err)
			continue
		}
		_, _ = fmt.Fprintf(g.out, "%s %s: index=%t rules=%t\n", m.Date, m.PatternID, m.InIndex, m.ByRules)
	}
	return cli.Exit(fmt.Sprintf("%d mismatches between index and rules", len(mismatches)), 1)
}

func (g *generator) grids(c *cli.Context) error {
	bundle, err := g.load(c)
	if err != nil {
		return err
	}

	builder := timetable.NewGridBuilder(bundle.Matrix, bundle.Legend)
	results, err := builder.BuildAll(c.Context, bundle.GridJobs(), c.Int("workers"))
	if err != nil {
		return fmt.Errorf("failed to render grids: %w", err)
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode grids: %w", err)
	}
	if err := os.WriteFile(c.String("out"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write grids: %w", err)
	}
	_, _ = fmt.Fprintf(g.out, "wrote %d stop timetables to %s\n", len(results), c.String("out"))
	return nil
}
