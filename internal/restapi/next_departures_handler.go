package restapi

import (
	"net/http"

	"timetable.intermodal.org/internal/models"
	"timetable.intermodal.org/internal/timetable"
)

// nextDeparturesHandler answers "when is the next bus" for a stop. The
// clock is captured once per request unless ?date= and ?time= are given.
func (api *RestAPI) nextDeparturesHandler(w http.ResponseWriter, r *http.Request) {
	date, now, err := api.queryMoment(r)
	if err != nil {
		api.resolutionErrorResponse(w, r, err)
		return
	}

	snap, release, ok := api.acquire(w, r)
	defer release()
	if !ok {
		return
	}

	subrouteID, stopID := r.PathValue("subroute"), r.PathValue("stop")
	sub, found := snap.Bundle.Subroute(subrouteID)
	if !found || !sub.Serves(stopID) {
		api.sendNotFound(w, r)
		return
	}

	departures, err := snap.StopDepartures(r.Context(), subrouteID, stopID)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	res, err := timetable.NextDepartures(departures, snap.Resolver, date, now)
	if err != nil {
		api.resolutionErrorResponse(w, r, err)
		return
	}

	entry := models.NewNextDeparturesEntry(subrouteID, stopID, date, now, res)
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
