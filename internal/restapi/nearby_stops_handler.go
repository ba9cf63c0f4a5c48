package restapi

import (
	"net/http"

	"timetable.intermodal.org/internal/geo"
	"timetable.intermodal.org/internal/models"
)

const (
	defaultNearbyRadius = 500.0
	maxNearbyRadius     = 10000.0
	defaultNearbyLimit  = 20
)

func (api *RestAPI) nearbyStopsHandler(w http.ResponseWriter, r *http.Request) {
	lat, err := parseFloatParam(r, "lat", 0, true)
	if err != nil {
		api.validationErrorResponse(w, r, err.Error())
		return
	}
	lon, err := parseFloatParam(r, "lon", 0, true)
	if err != nil {
		api.validationErrorResponse(w, r, err.Error())
		return
	}
	if !geo.ValidCoordinate(lat, lon) {
		api.validationErrorResponse(w, r, "coordinates out of range")
		return
	}
	radius, err := parseFloatParam(r, "radius", defaultNearbyRadius, false)
	if err != nil {
		api.validationErrorResponse(w, r, err.Error())
		return
	}
	radius = min(max(radius, 0), maxNearbyRadius)
	limit, err := parseIntParam(r, "limit", defaultNearbyLimit)
	if err != nil {
		api.validationErrorResponse(w, r, err.Error())
		return
	}

	snap, release, ok := api.acquire(w, r)
	defer release()
	if !ok {
		return
	}

	found := snap.Stops.Nearby(lat, lon, radius, limit)
	list := make([]models.NearbyStop, 0, len(found))
	for _, s := range found {
		list = append(list, models.NearbyStop{
			ID:       s.ID,
			Name:     s.Name,
			Lat:      s.Lat,
			Lon:      s.Lon,
			Distance: s.Distance,
		})
	}
	api.sendResponse(w, r, models.NewListResponse(list, api.Clock))
}
