package feed

import (
	"strings"

	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/geo"
	"timetable.intermodal.org/internal/timetable"
	"timetable.intermodal.org/timetabledb"
)

type Stop struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// Subroute is one direction or variant of a route. StopIDs is the calling
// order; Departures holds each stop's sorted departures and Starts the
// departures from the first stop.
type Subroute struct {
	ID         string                           `json:"id"`
	RouteID    string                           `json:"routeId"`
	Name       string                           `json:"name"`
	StopIDs    []string                         `json:"stopIds"`
	Departures map[string][]timetable.Departure `json:"departures"`
	Starts     []timetable.Departure            `json:"starts"`
}

type Route struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Subroutes []*Subroute `json:"subroutes"`
}

// Bundle is one fully parsed feed. It is never mutated after loading.
type Bundle struct {
	Source     string                 `json:"source"`
	Hash       string                 `json:"hash"`
	Matrix     *calendar.Matrix       `json:"matrix"`
	Legend     *calendar.Legend       `json:"-"`
	Classifier *calendar.Classifier   `json:"-"`
	Index      *calendar.ServiceIndex `json:"-"`
	Routes     []*Route               `json:"routes"`
	Stops      []Stop                 `json:"stops"`

	routes    map[string]*Route
	subroutes map[string]*Subroute
	stops     map[string]*Stop
}

// link builds the id lookups. Loaders call it once the slices are final.
func (b *Bundle) link() {
	b.routes = make(map[string]*Route, len(b.Routes))
	b.subroutes = make(map[string]*Subroute)
	b.stops = make(map[string]*Stop, len(b.Stops))
	for _, r := range b.Routes {
		b.routes[r.ID] = r
		for _, s := range r.Subroutes {
			b.subroutes[s.ID] = s
		}
	}
	for i := range b.Stops {
		b.stops[b.Stops[i].ID] = &b.Stops[i]
	}
}

func (b *Bundle) Route(id string) (*Route, bool) {
	r, ok := b.routes[id]
	return r, ok
}

func (b *Bundle) Subroute(id string) (*Subroute, bool) {
	s, ok := b.subroutes[id]
	return s, ok
}

func (b *Bundle) Stop(id string) (*Stop, bool) {
	s, ok := b.stops[id]
	return s, ok
}

// Serves reports whether the subroute calls at the stop.
func (s *Subroute) Serves(stopID string) bool {
	_, ok := s.Departures[stopID]
	return ok
}

// Resolver prefers the precomputed index and falls back to evaluating the
// rules when the bundle has none.
func (b *Bundle) Resolver() calendar.Resolver {
	if b.Index != nil {
		return calendar.NewIndexResolver(b.Matrix, b.Index)
	}
	return b.Rules()
}

func (b *Bundle) Rules() *calendar.RuleResolver {
	return calendar.NewRuleResolver(b.Matrix, b.Classifier, b.Legend)
}

func (b *Bundle) ResolverKind() string {
	if b.Index != nil {
		return "index"
	}
	return "rules"
}

// ServiceWindow is the range covered by the index, zero without one.
func (b *Bundle) ServiceWindow() calendar.Window {
	if b.Index == nil {
		return calendar.Window{}
	}
	return b.Index.Window()
}

func (b *Bundle) DepartureCount() int {
	n := 0
	for _, r := range b.Routes {
		for _, s := range r.Subroutes {
			for _, deps := range s.Departures {
				n += len(deps)
			}
		}
	}
	return n
}

// SubrouteNames maps subroute ids of a route to display names, keeping the
// route's subroute order in the returned slice.
func (r *Route) SubrouteNames() ([]string, map[string]string) {
	order := make([]string, 0, len(r.Subroutes))
	names := make(map[string]string, len(r.Subroutes))
	for _, s := range r.Subroutes {
		order = append(order, s.ID)
		names[s.ID] = s.Name
	}
	return order, names
}

// GridJobs lists every (subroute, stop) timetable in feed order.
func (b *Bundle) GridJobs() []timetable.GridJob {
	var jobs []timetable.GridJob
	for _, r := range b.Routes {
		for _, s := range r.Subroutes {
			for _, stopID := range s.StopIDs {
				jobs = append(jobs, timetable.GridJob{
					SubrouteID: s.ID,
					StopID:     stopID,
					Departures: s.Departures[stopID],
				})
			}
		}
	}
	return jobs
}

// Points returns the stops that carry coordinates.
func (b *Bundle) Points() []geo.Point {
	points := make([]geo.Point, 0, len(b.Stops))
	for _, s := range b.Stops {
		if s.Lat == nil || s.Lon == nil {
			continue
		}
		points = append(points, geo.Point{ID: s.ID, Name: s.Name, Lat: *s.Lat, Lon: *s.Lon})
	}
	return points
}

// Path returns the subroute's stops in calling order for shape encoding.
func (b *Bundle) Path(s *Subroute) []geo.PathStop {
	path := make([]geo.PathStop, 0, len(s.StopIDs))
	for _, id := range s.StopIDs {
		ps := geo.PathStop{ID: id}
		if stop, ok := b.stops[id]; ok {
			ps.Lat, ps.Lon = stop.Lat, stop.Lon
		}
		path = append(path, ps)
	}
	return path
}

// Dataset flattens the bundle into store rows.
func (b *Bundle) Dataset() timetabledb.Dataset {
	var ds timetabledb.Dataset

	for _, id := range b.Matrix.IDs() {
		v, _ := b.Matrix.Vector(id)
		ds.ServicePatterns = append(ds.ServicePatterns, timetabledb.ServicePattern{
			ID:    id,
			Cells: strings.Join(v.Strings(), ","),
		})
	}
	if b.Index != nil {
		for _, date := range b.Index.Dates() {
			for _, id := range b.Index.Patterns(date) {
				ds.ServiceDates = append(ds.ServiceDates, timetabledb.ServiceDate{Date: int64(date), ServicePatternID: id})
			}
		}
	}
	for _, e := range b.Legend.Entries() {
		ds.Legend = append(ds.Legend, timetabledb.LegendEntry{
			Letter:      e.Letter,
			Description: e.Description,
			Predicate:   timetabledb.ToNullString(e.When),
		})
	}
	for _, s := range b.Stops {
		ds.Stops = append(ds.Stops, timetabledb.Stop{
			ID:   s.ID,
			Name: s.Name,
			Lat:  timetabledb.ToNullFloat64(s.Lat),
			Lon:  timetabledb.ToNullFloat64(s.Lon),
		})
	}
	for _, r := range b.Routes {
		ds.Routes = append(ds.Routes, timetabledb.Route{ID: r.ID, Name: r.Name})
		for pos, s := range r.Subroutes {
			ds.Subroutes = append(ds.Subroutes, timetabledb.Subroute{
				ID:       s.ID,
				RouteID:  r.ID,
				Name:     s.Name,
				Position: int64(pos),
			})
			for seq, stopID := range s.StopIDs {
				ds.SubrouteStops = append(ds.SubrouteStops, timetabledb.SubrouteStop{
					SubrouteID:   s.ID,
					StopSequence: int64(seq),
					StopID:       stopID,
				})
				for _, d := range s.Departures[stopID] {
					ds.StopDepartures = append(ds.StopDepartures, timetabledb.StopDeparture{
						SubrouteID:       s.ID,
						StopID:           stopID,
						StopSequence:     int64(seq),
						DepartureMinutes: int64(d.Time),
						ServicePatternID: d.ServicePatternID,
					})
				}
			}
			for _, d := range s.Starts {
				ds.SubrouteDepartures = append(ds.SubrouteDepartures, timetabledb.SubrouteDeparture{
					SubrouteID:       s.ID,
					DepartureMinutes: int64(d.Time),
					ServicePatternID: d.ServicePatternID,
				})
			}
		}
	}
	return ds
}
