package restapi

import (
	"net/http"

	"timetable.intermodal.org/internal/models"
	"timetable.intermodal.org/internal/timetable"
)

// routeScheduleHandler builds the hourly departure table of every subroute
// of a route on one date.
func (api *RestAPI) routeScheduleHandler(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r.PathValue("date"))
	if err != nil {
		api.validationErrorResponse(w, r, err.Error())
		return
	}

	snap, release, ok := api.acquire(w, r)
	defer release()
	if !ok {
		return
	}

	routeID := r.PathValue("route")
	route, found := snap.Bundle.Route(routeID)
	if !found {
		api.sendNotFound(w, r)
		return
	}

	departures, err := snap.RouteDepartures(r.Context(), routeID)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	order, names := route.SubrouteNames()
	schedules, err := timetable.ScheduleForDate(departures, snap.Resolver, date, order...)
	if err != nil {
		api.resolutionErrorResponse(w, r, err)
		return
	}

	entry := models.NewRouteScheduleEntry(routeID, date, order, names, schedules)
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
