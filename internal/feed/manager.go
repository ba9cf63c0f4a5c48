package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/geo"
	"timetable.intermodal.org/internal/logging"
	"timetable.intermodal.org/internal/metrics"
	"timetable.intermodal.org/internal/timetable"
	"timetable.intermodal.org/timetabledb"
)

// ErrNotLoaded is returned by Acquire before the first successful load.
var ErrNotLoaded = errors.New("feed not loaded")

// Snapshot is a consistent view of one loaded feed. Everything except Store
// is immutable; the store is only rewritten while no snapshot is held.
type Snapshot struct {
	Bundle   *Bundle
	Resolver calendar.Resolver
	Grids    *timetable.GridBuilder
	Stops    *geo.StopIndex
	Store    *timetabledb.Client
	LoadedAt time.Time
}

// StopDepartures reads one stop's departures on a subroute from the store,
// ordered by time then service pattern.
func (s *Snapshot) StopDepartures(ctx context.Context, subrouteID, stopID string) ([]timetable.Departure, error) {
	rows, err := s.Store.Queries.GetStopDepartures(ctx, timetabledb.GetStopDeparturesParams{
		SubrouteID: subrouteID,
		StopID:     stopID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read stop departures: %w", err)
	}
	deps := make([]timetable.Departure, 0, len(rows))
	for _, row := range rows {
		deps = append(deps, timetable.Departure{
			Time:             timetable.Minutes(row.DepartureMinutes),
			ServicePatternID: row.ServicePatternID,
		})
	}
	return deps, nil
}

// RouteDepartures reads the first-stop departures of every subroute of a
// route.
func (s *Snapshot) RouteDepartures(ctx context.Context, routeID string) ([]timetable.RouteDeparture, error) {
	rows, err := s.Store.Queries.GetRouteDepartures(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read route departures: %w", err)
	}
	deps := make([]timetable.RouteDeparture, 0, len(rows))
	for _, row := range rows {
		deps = append(deps, timetable.RouteDeparture{
			Time:             timetable.Minutes(row.DepartureMinutes),
			SubrouteID:       row.SubrouteID,
			ServicePatternID: row.ServicePatternID,
		})
	}
	return deps, nil
}

// Manager owns the loaded feed and swaps it for a fresh one on reload.
type Manager struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	staticMutex       sync.RWMutex
	staticUpdateMutex sync.Mutex
	snapshot          *Snapshot
	store             *timetabledb.Client

	isHealthy   atomic.Bool
	isReady     atomic.Bool
	lastUpdated atomic.Int64

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// InitManager opens the store, performs the first load and starts the
// periodic reload when an interval is configured.
func InitManager(ctx context.Context, config Config, m *metrics.Metrics, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := timetabledb.NewClient(timetabledb.NewConfig(config.dbPath(), config.Env, config.Verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to create timetable database client: %w", err)
	}

	manager := &Manager{
		config:       config,
		logger:       logger.With(slog.String("component", "feed_manager")),
		metrics:      m,
		store:        store,
		shutdownChan: make(chan struct{}),
	}
	if err := manager.ForceUpdate(ctx); err != nil {
		logging.SafeCloseWithLogging(store, manager.logger, "timetable_db")
		return nil, err
	}

	if config.ReloadInterval > 0 {
		manager.wg.Add(1)
		go manager.updatePeriodically()
	}
	return manager, nil
}

func (manager *Manager) load() (*Bundle, error) {
	return Load(manager.config.DataPath, manager.config.PeriodsFile, manager.logger)
}

// ForceUpdate loads the feed, rebuilds the derived indexes and, when the
// content changed, reimports the store and swaps the snapshot. Readers keep
// the previous snapshot until the swap; a failed load leaves it in place.
func (manager *Manager) ForceUpdate(ctx context.Context) error {
	manager.staticUpdateMutex.Lock()
	defer manager.staticUpdateMutex.Unlock()

	logger := manager.logger
	bundle, err := manager.load()
	if err != nil {
		manager.metrics.RecordFeedLoad(err, 0, 0)
		logging.LogError(logger, "Error loading feed", err, slog.String("source", manager.config.DataPath))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stopIndex := geo.NewStopIndex(bundle.Points())
	dataset := bundle.Dataset()

	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()

	imported, err := manager.store.ImportDataset(ctx, dataset, bundle.Source, bundle.Hash)
	if err != nil {
		manager.metrics.RecordFeedLoad(err, 0, 0)
		logging.LogError(logger, "Error importing feed into store", err)
		if manager.snapshot == nil {
			manager.MarkUnhealthy()
		}
		return err
	}

	now := time.Now()
	manager.lastUpdated.Store(now.UnixMilli())
	if !imported && manager.snapshot != nil {
		logging.LogOperation(logger, "feed_unchanged_skipping_swap", slog.String("hash", bundle.Hash))
		return nil
	}

	manager.snapshot = &Snapshot{
		Bundle:   bundle,
		Resolver: bundle.Resolver(),
		Grids:    timetable.NewGridBuilder(bundle.Matrix, bundle.Legend),
		Stops:    stopIndex,
		Store:    manager.store,
		LoadedAt: now,
	}
	manager.MarkHealthy()
	manager.isReady.Store(true)
	manager.metrics.RecordFeedLoad(nil, bundle.Matrix.Len(), bundle.DepartureCount())

	logging.LogOperation(logger, "feed_data_updated_hot_swap",
		slog.String("source", bundle.Source),
		slog.String("resolver", bundle.ResolverKind()),
		slog.Duration("import_duration", manager.store.LastImportDuration()))
	return nil
}

// Acquire returns the current snapshot and a release func that must be
// called when the caller is done with it, store queries included.
func (manager *Manager) Acquire() (*Snapshot, func(), error) {
	manager.staticMutex.RLock()
	if manager.snapshot == nil {
		manager.staticMutex.RUnlock()
		return nil, func() {}, ErrNotLoaded
	}
	return manager.snapshot, manager.staticMutex.RUnlock, nil
}

// Store exposes the database for health checks and stats collection.
func (manager *Manager) Store() *timetabledb.Client {
	return manager.store
}

func (manager *Manager) LastUpdated() time.Time {
	ms := manager.lastUpdated.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (manager *Manager) MarkHealthy() {
	manager.isHealthy.Store(true)
}

func (manager *Manager) MarkUnhealthy() {
	manager.isHealthy.Store(false)
}

func (manager *Manager) IsHealthy() bool {
	return manager.isHealthy.Load()
}

// IsReady reports whether a feed has been loaded and indexed.
func (manager *Manager) IsReady() bool {
	return manager.isReady.Load()
}

func (manager *Manager) updatePeriodically() {
	defer manager.wg.Done()

	logger := manager.logger.With(slog.String("component", "feed_updater"))
	ticker := time.NewTicker(manager.config.ReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			err := manager.ForceUpdate(ctx)
			cancel()
			if err != nil {
				logging.LogError(logger, "Error reloading feed", err,
					slog.String("source", manager.config.DataPath))
			}
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_feed_updates")
			return
		}
	}
}

// Shutdown stops the updater and closes the store. It is safe to call more
// than once.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()
		manager.staticMutex.Lock()
		defer manager.staticMutex.Unlock()
		manager.isReady.Store(false)
		logging.SafeCloseWithLogging(manager.store, manager.logger, "timetable_db")
	})
}
