package restapi

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"timetable.intermodal.org/internal/app"
	"timetable.intermodal.org/internal/feed"
)

// Cache lifetimes per endpoint tier, in seconds.
const (
	cacheNone   = 0
	cacheShort  = 30
	cacheStatic = 300
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
	stale       *StaleDetector
}

func NewRestAPI(app *app.Application) *RestAPI {
	api := &RestAPI{Application: app, stale: NewStaleDetector()}
	if app != nil {
		api.rateLimiter = NewRateLimitMiddleware(app.Config.RateLimit, time.Second, app.Config.ExemptApiKeys, app.Clock)
		if app.FeedConfig.ReloadInterval > 0 {
			api.stale = api.stale.WithThreshold(2 * app.FeedConfig.ReloadInterval)
		}
	}
	return api
}

// SetRoutes registers every endpoint on mux. API endpoints require a valid
// key; health and metrics do not.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Application != nil && api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	api.handle(mux, "GET /api/current-time", cacheNone, api.currentTimeHandler)
	api.handle(mux, "GET /api/config", cacheShort, api.configHandler)
	api.handle(mux, "GET /api/calendar/{date}", cacheStatic, api.calendarDayHandler)
	api.handle(mux, "GET /api/subroutes/{subroute}/stops/{stop}/grid", cacheStatic, api.gridHandler)
	api.handle(mux, "GET /api/subroutes/{subroute}/stops/{stop}/next", cacheNone, api.nextDeparturesHandler)
	api.handle(mux, "GET /api/routes/{route}/schedule/{date}", cacheStatic, api.routeScheduleHandler)
	api.handle(mux, "GET /api/routes/{route}/shape", cacheStatic, api.routeShapeHandler)
	api.handle(mux, "GET /api/stops/nearby", cacheShort, api.nearbyStopsHandler)
}

func (api *RestAPI) handle(mux *http.ServeMux, pattern string, cacheSeconds int, h http.HandlerFunc) {
	mux.Handle(pattern, CacheControlMiddleware(cacheSeconds, api.requireAPIKey(h)))
}

func (api *RestAPI) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		next(w, r)
	}
}

// Handler wraps mux with the shared middleware stack. Metrics sit closest
// to the mux so they observe the matched route pattern.
func (api *RestAPI) Handler(mux *http.ServeMux) http.Handler {
	var h http.Handler = mux
	h = MetricsHandler(api.Metrics)(h)
	h = gzhttp.GzipHandler(h)
	if api.rateLimiter != nil {
		h = api.rateLimiter.Handler()(h)
	}
	h = NewRequestLoggingMiddleware(api.Logger)(h)
	return RequestIDMiddleware(h)
}

// Shutdown stops background work owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}

// acquire returns the current feed snapshot, answering 503 itself when no
// feed is loaded. The release func must always be called.
func (api *RestAPI) acquire(w http.ResponseWriter, r *http.Request) (*feed.Snapshot, func(), bool) {
	if api.Feed == nil {
		api.unavailableResponse(w, r)
		return nil, func() {}, false
	}
	snap, release, err := api.Feed.Acquire()
	if err != nil {
		api.unavailableResponse(w, r)
		return nil, release, false
	}
	return snap, release, true
}
