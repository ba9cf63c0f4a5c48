package restapi

import (
	"net/http"

	"timetable.intermodal.org/internal/models"
	"timetable.intermodal.org/internal/timetable"
)

// gridHandler renders the printed-timetable grids of one stop on one
// subroute, one grid per (period, day type) with service. ?period= and ?day=
// narrow the result.
func (api *RestAPI) gridHandler(w http.ResponseWriter, r *http.Request) {
	keep, err := parseBucketFilter(r)
	if err != nil {
		api.validationErrorResponse(w, r, err.Error())
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

	set, err := snap.Grids.BuildGrids(departures)
	if err != nil {
		api.resolutionErrorResponse(w, r, err)
		return
	}
	api.Metrics.AddGridsBuilt(len(set.Grids))

	grids := make([]timetable.Grid, 0, len(set.Grids))
	for _, g := range set.Grids {
		if keep(g.Bucket()) {
			grids = append(grids, g)
		}
	}
	set.Grids = grids

	stopName := stopID
	if stop, ok := snap.Bundle.Stop(stopID); ok {
		stopName = stop.Name
	}
	entry := models.NewGridEntry(subrouteID, stopID, stopName, set)
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
