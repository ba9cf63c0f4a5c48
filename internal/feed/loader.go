package feed

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/logging"
	"timetable.intermodal.org/internal/timetable"
)

const (
	matrixFile  = "calendar.json"
	legendFile  = "legend.json"
	indexFile   = "date_service_ids.json"
	periodsFile = "periods.yaml"
	routesFile  = "routes.json"
	stopsFile   = "stops.json"
)

// maxBundleFile caps a single decompressed bundle file.
const maxBundleFile = 64 * 1024 * 1024

// Load reads a GTFS zip or a bundle directory, chosen by the path's
// extension.
func Load(path, periodsOverride string, logger *slog.Logger) (*Bundle, error) {
	if isGTFSPath(path) {
		return LoadGTFS(path, periodsOverride, logger)
	}
	return LoadBundle(path, periodsOverride, logger)
}

type routeRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Subroutes []subrouteRecord `json:"subroutes"`
}

type subrouteRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timetable string `json:"timetable"`
}

type bundleReader struct {
	dir  string
	hash hash.Hash
}

// read returns the named file, trying name+".gz" when the plain file is
// missing. Names ending in .gz are always decompressed.
func (br *bundleReader) read(name string) ([]byte, error) {
	path := filepath.Join(br.dir, filepath.FromSlash(name))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !strings.HasSuffix(name, ".gz") {
		path += ".gz"
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		data, err = gunzip(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	br.hash.Write([]byte(name))
	br.hash.Write(data)
	return data, nil
}

// readOptional is read with a missing file reported as nil data.
func (br *bundleReader) readOptional(name string) ([]byte, error) {
	data, err := br.read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer func() { _ = zr.Close() }()
	out, err := io.ReadAll(io.LimitReader(zr, maxBundleFile+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	if len(out) > maxBundleFile {
		return nil, fmt.Errorf("decompressed file exceeds %d bytes", maxBundleFile)
	}
	return out, nil
}

// LoadBundle reads a bundle directory. periodsOverride, when set, replaces
// the bundle's own periods.yaml.
func LoadBundle(dir, periodsOverride string, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "bundle_loader"))
	br := &bundleReader{dir: dir, hash: sha256.New()}

	data, err := br.read(matrixFile)
	if err != nil {
		return nil, fmt.Errorf("error reading calendar matrix: %w", err)
	}
	matrix, err := calendar.ParseMatrix(data)
	if err != nil {
		return nil, err
	}

	legend, err := loadLegend(br)
	if err != nil {
		return nil, err
	}

	classifier, err := loadClassifier(br, periodsOverride)
	if err != nil {
		return nil, err
	}

	var index *calendar.ServiceIndex
	if data, err := br.readOptional(indexFile); err != nil {
		return nil, fmt.Errorf("error reading service index: %w", err)
	} else if data != nil {
		if index, err = calendar.ParseServiceIndex(data); err != nil {
			return nil, err
		}
		// An index without dates has no validity window; resolve from rules.
		if index.Len() == 0 {
			logging.LogOperation(logger, "empty_service_index_ignored",
				slog.String("file", indexFile))
			index = nil
		}
	}

	stops, err := loadStops(br)
	if err != nil {
		return nil, err
	}

	data, err = br.read(routesFile)
	if err != nil {
		return nil, fmt.Errorf("error reading routes: %w", err)
	}
	var records []routeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse routes: %w", err)
	}

	linker := newStopLinker(stops)
	b := &Bundle{
		Source:     dir,
		Matrix:     matrix,
		Legend:     legend,
		Classifier: classifier,
		Index:      index,
	}
	for _, rr := range records {
		if rr.ID == "" {
			return nil, errors.New("routes: route without id")
		}
		route := &Route{ID: rr.ID, Name: rr.Name}
		for _, sr := range rr.Subroutes {
			sub, err := loadSubroute(br, rr.ID, sr, linker)
			if err != nil {
				return nil, err
			}
			route.Subroutes = append(route.Subroutes, sub)
		}
		b.Routes = append(b.Routes, route)
	}
	b.Stops = linker.stops
	b.Hash = hex.EncodeToString(br.hash.Sum(nil))
	b.link()

	warnDataProblems(b, logger)
	logging.LogOperation(logger, "bundle_loaded",
		slog.String("source", dir),
		slog.Int("service_patterns", matrix.Len()),
		slog.Int("routes", len(b.Routes)),
		slog.Int("stops", len(b.Stops)),
		slog.String("resolver", b.ResolverKind()))
	return b, nil
}

func loadLegend(br *bundleReader) (*calendar.Legend, error) {
	data, err := br.readOptional(legendFile)
	if err != nil {
		return nil, fmt.Errorf("error reading legend: %w", err)
	}
	if data == nil {
		return calendar.NewLegend()
	}
	return calendar.ParseLegend(data)
}

// loadClassifier reads the override file, else the bundle's periods.yaml,
// else falls back to the default calendar.
func loadClassifier(br *bundleReader, override string) (*calendar.Classifier, error) {
	var (
		data []byte
		err  error
	)
	if override != "" {
		data, err = os.ReadFile(override)
		if err == nil {
			br.hash.Write(data)
		}
	} else if br.dir != "" {
		data, err = br.readOptional(periodsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading periods: %w", err)
	}

	cfg := calendar.DefaultClassifierConfig()
	if data != nil {
		if cfg, err = calendar.ParseClassifierConfig(data); err != nil {
			return nil, err
		}
	}
	return calendar.NewClassifier(cfg)
}

func loadStops(br *bundleReader) ([]Stop, error) {
	data, err := br.readOptional(stopsFile)
	if err != nil {
		return nil, fmt.Errorf("error reading stops: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var stops []Stop
	if err := json.Unmarshal(data, &stops); err != nil {
		return nil, fmt.Errorf("failed to parse stops: %w", err)
	}
	return stops, nil
}

// stopLinker maps timetable stop names to stop ids, registering a new stop
// named after itself when no listed stop matches.
type stopLinker struct {
	stops  []Stop
	byName map[string]string
	byID   map[string]bool
}

func newStopLinker(stops []Stop) *stopLinker {
	l := &stopLinker{
		stops:  slices.Clone(stops),
		byName: make(map[string]string, len(stops)),
		byID:   make(map[string]bool, len(stops)),
	}
	for _, s := range stops {
		l.byID[s.ID] = true
		if _, dup := l.byName[s.Name]; !dup {
			l.byName[s.Name] = s.ID
		}
	}
	return l
}

func (l *stopLinker) idFor(name string) string {
	if id, ok := l.byName[name]; ok {
		return id
	}
	if l.byID[name] {
		return name
	}
	l.stops = append(l.stops, Stop{ID: name, Name: name})
	l.byName[name] = name
	l.byID[name] = true
	return name
}

func loadSubroute(br *bundleReader, routeID string, sr subrouteRecord, linker *stopLinker) (*Subroute, error) {
	if sr.ID == "" || sr.Timetable == "" {
		return nil, fmt.Errorf("route %q: subroute needs id and timetable", routeID)
	}
	data, err := br.read(sr.Timetable)
	if err != nil {
		return nil, fmt.Errorf("subroute %q: error reading timetable: %w", sr.ID, err)
	}
	entries, err := timetable.ParseSubrouteTimetable(data)
	if err != nil {
		return nil, fmt.Errorf("subroute %q: %w", sr.ID, err)
	}

	sub := &Subroute{
		ID:         sr.ID,
		RouteID:    routeID,
		Name:       sr.Name,
		Departures: make(map[string][]timetable.Departure, len(entries)),
	}
	for i, entry := range entries {
		id := linker.idFor(entry.Stop)
		if _, seen := sub.Departures[id]; !seen {
			sub.StopIDs = append(sub.StopIDs, id)
		}
		deps := append(sub.Departures[id], entry.Departures...)
		timetable.SortDepartures(deps)
		sub.Departures[id] = deps
		if i == 0 {
			sub.Starts = slices.Clone(deps)
		}
	}
	return sub, nil
}

// warnDataProblems logs references the resolver will reject at query time.
func warnDataProblems(b *Bundle, logger *slog.Logger) {
	unknown := make(map[string]bool)
	for _, r := range b.Routes {
		for _, s := range r.Subroutes {
			for _, deps := range s.Departures {
				for _, d := range deps {
					if !b.Matrix.Has(d.ServicePatternID) {
						unknown[d.ServicePatternID] = true
					}
				}
			}
		}
	}
	for id := range unknown {
		logger.Warn("departures reference unknown service pattern", slog.String("service_pattern_id", id))
	}
	for _, letter := range b.Matrix.Letters() {
		if _, ok := b.Legend.Lookup(letter); !ok {
			logger.Warn("exception letter missing from legend", slog.String("letter", letter))
		}
	}
}
