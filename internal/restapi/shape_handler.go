package restapi

import (
	"net/http"

	"timetable.intermodal.org/internal/geo"
	"timetable.intermodal.org/internal/models"
)

func (api *RestAPI) routeShapeHandler(w http.ResponseWriter, r *http.Request) {
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

	entry := models.RouteShapeEntry{RouteID: routeID, Subroutes: make([]models.SubrouteShape, 0, len(route.Subroutes))}
	for _, sub := range route.Subroutes {
		segments := geo.EncodeSegments(snap.Bundle.Path(sub))
		if segments == nil {
			segments = []string{}
		}
		entry.Subroutes = append(entry.Subroutes, models.SubrouteShape{
			SubrouteID: sub.ID,
			Name:       sub.Name,
			Segments:   segments,
			StopIDs:    sub.StopIDs,
		})
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
