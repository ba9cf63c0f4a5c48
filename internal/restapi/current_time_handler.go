package restapi

import (
	"net/http"

	"timetable.intermodal.org/internal/clock"
	"timetable.intermodal.org/internal/models"
)

// currentTimeHandler reports the clock reading every timetable query would
// use right now, in the operator's time zone.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	if api.Feed != nil && !api.Feed.IsHealthy() {
		api.unavailableResponse(w, r)
		return
	}

	reading := clock.Capture(api.Clock, api.Location())
	response := models.NewEntryResponse(models.NewCurrentTimeData(reading.Time), api.Clock)
	api.sendResponse(w, r, response)
}
