package feed

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/logging"
	"timetable.intermodal.org/internal/timetable"
)

// maxStaticSize caps the GTFS archive read from disk.
const maxStaticSize = 200 * 1024 * 1024

// LoadGTFS reads a GTFS zip and derives a bundle from it. The index is
// computed from calendar.txt and calendar_dates.txt, so the bundle always
// resolves through it. The matrix marks a bucket active when the service
// runs on at least one date that falls into it.
func LoadGTFS(path, periodsOverride string, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "gtfs_import"))

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error reading local GTFS file: %w", err)
	}
	if info.Size() > maxStaticSize {
		return nil, fmt.Errorf("GTFS file exceeds size limit of %d bytes", maxStaticSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading local GTFS file: %w", err)
	}

	classifier, err := loadClassifier(&bundleReader{hash: sha256.New()}, periodsOverride)
	if err != nil {
		return nil, err
	}

	static, err := gtfs.ParseStatic(data, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	b, err := bundleFromStatic(static, classifier)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	b.Source = path
	b.Hash = hex.EncodeToString(sum[:])
	b.link()

	logging.LogOperation(logger, "gtfs_feed_converted",
		slog.String("source", path),
		slog.Int("services", len(static.Services)),
		slog.Int("trips", len(static.Trips)),
		slog.Int("routes", len(b.Routes)),
		slog.Int("index_dates", b.Index.Len()))
	return b, nil
}

func bundleFromStatic(static *gtfs.Static, classifier *calendar.Classifier) (*Bundle, error) {
	index := serviceIndexFromGTFS(static.Services)

	vectors := make(map[string]calendar.ActivityVector, len(static.Services))
	for _, svc := range static.Services {
		vectors[svc.Id] = calendar.ActivityVector{}
	}
	for _, date := range index.Dates() {
		bucket := classifier.Classify(date).Index()
		for _, id := range index.Patterns(date) {
			v := vectors[id]
			v[bucket] = calendar.Cell{Kind: calendar.Active}
			vectors[id] = v
		}
	}

	legend, err := calendar.NewLegend()
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Matrix:     calendar.NewMatrix(vectors),
		Legend:     legend,
		Classifier: classifier,
		Index:      index,
		Routes:     routesFromGTFS(static),
	}
	for _, s := range static.Stops {
		b.Stops = append(b.Stops, Stop{ID: s.Id, Name: s.Name, Lat: s.Latitude, Lon: s.Longitude})
	}
	return b, nil
}

// serviceIndexFromGTFS expands weekly service rules and their added and
// removed dates into concrete dates.
func serviceIndexFromGTFS(services []gtfs.Service) *calendar.ServiceIndex {
	index := calendar.NewServiceIndex()
	for _, svc := range services {
		removed := make(map[calendar.DateKey]bool, len(svc.RemovedDates))
		for _, t := range svc.RemovedDates {
			removed[calendar.DateKeyOf(t)] = true
		}
		runs := [7]bool{
			time.Sunday:    svc.Sunday,
			time.Monday:    svc.Monday,
			time.Tuesday:   svc.Tuesday,
			time.Wednesday: svc.Wednesday,
			time.Thursday:  svc.Thursday,
			time.Friday:    svc.Friday,
			time.Saturday:  svc.Saturday,
		}
		if !svc.StartDate.IsZero() && !svc.EndDate.IsZero() {
			_ = calendar.DaysBetween(calendar.DateKeyOf(svc.StartDate), calendar.DateKeyOf(svc.EndDate), func(d calendar.DateKey) error {
				if runs[d.Weekday()] && !removed[d] {
					index.Add(d, svc.Id)
				}
				return nil
			})
		}
		for _, t := range svc.AddedDates {
			index.Add(calendar.DateKeyOf(t), svc.Id)
		}
	}
	return index
}

type tripDirection struct {
	routeID   string
	direction int64
}

// routesFromGTFS groups trips by route and direction into subroutes. The
// stop order follows the trip with most stops; stops seen only on other
// trips are appended after it.
func routesFromGTFS(static *gtfs.Static) []*Route {
	groups := make(map[tripDirection][]*gtfs.ScheduledTrip)
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil || trip.Service == nil || len(trip.StopTimes) == 0 {
			continue
		}
		key := tripDirection{routeID: trip.Route.Id, direction: int64(trip.DirectionId)}
		groups[key] = append(groups[key], trip)
	}

	var routes []*Route
	for _, r := range static.Routes {
		route := &Route{ID: r.Id, Name: routeName(r)}
		for key, trips := range groups {
			if key.routeID == r.Id {
				route.Subroutes = append(route.Subroutes, subrouteFromTrips(key, trips))
			}
		}
		if len(route.Subroutes) == 0 {
			continue
		}
		slices.SortFunc(route.Subroutes, func(a, b *Subroute) int { return cmp.Compare(a.ID, b.ID) })
		routes = append(routes, route)
	}
	slices.SortFunc(routes, func(a, b *Route) int { return cmp.Compare(a.ID, b.ID) })
	return routes
}

func routeName(r gtfs.Route) string {
	switch {
	case r.ShortName != "" && r.LongName != "":
		return r.ShortName + " " + r.LongName
	case r.ShortName != "":
		return r.ShortName
	case r.LongName != "":
		return r.LongName
	}
	return r.Id
}

func subrouteFromTrips(key tripDirection, trips []*gtfs.ScheduledTrip) *Subroute {
	slices.SortStableFunc(trips, func(a, b *gtfs.ScheduledTrip) int {
		return cmp.Compare(len(b.StopTimes), len(a.StopTimes))
	})

	sub := &Subroute{
		ID:         fmt.Sprintf("%s-%d", key.routeID, key.direction),
		RouteID:    key.routeID,
		Name:       trips[0].Headsign,
		Departures: make(map[string][]timetable.Departure),
	}
	if sub.Name == "" {
		sub.Name = fmt.Sprintf("Direction %d", key.direction)
	}

	for _, trip := range trips {
		stopTimes := slices.Clone(trip.StopTimes)
		slices.SortFunc(stopTimes, func(a, b gtfs.ScheduledStopTime) int {
			return cmp.Compare(a.StopSequence, b.StopSequence)
		})
		first := true
		for _, st := range stopTimes {
			if st.Stop == nil {
				continue
			}
			dep := timetable.Departure{
				Time:             timetable.Minutes(st.DepartureTime / time.Minute),
				ServicePatternID: trip.Service.Id,
			}
			if _, seen := sub.Departures[st.Stop.Id]; !seen {
				sub.StopIDs = append(sub.StopIDs, st.Stop.Id)
			}
			sub.Departures[st.Stop.Id] = append(sub.Departures[st.Stop.Id], dep)
			if first {
				sub.Starts = append(sub.Starts, dep)
				first = false
			}
		}
	}
	for id, deps := range sub.Departures {
		timetable.SortDepartures(deps)
		sub.Departures[id] = deps
	}
	timetable.SortDepartures(sub.Starts)
	return sub
}
