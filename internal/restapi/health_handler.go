package restapi

import (
	"encoding/json"
	"net/http"

	"timetable.intermodal.org/internal/logging"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeHealth(w http.ResponseWriter, code int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// healthHandler checks that a feed is loaded and the store answers. A feed
// that has not reloaded for too long is reported but still served.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	if api.Application == nil || api.Feed == nil || api.Feed.Store() == nil {
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Detail: "feed manager not initialized",
		})
		return
	}

	if !api.Feed.IsReady() {
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "starting",
			Detail: "timetable data is being loaded",
		})
		return
	}

	if err := api.Feed.Store().DB.PingContext(r.Context()); err != nil {
		logging.LogError(api.Logger, "timetable DB ping failed", err)
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Detail: "database connection failed",
		})
		return
	}

	if api.FeedConfig.ReloadInterval > 0 && api.stale.Check(api.Feed.LastUpdated(), api.Clock.Now()) {
		writeHealth(w, http.StatusOK, HealthResponse{
			Status: "stale",
			Detail: "feed has not been refreshed recently",
		})
		return
	}

	writeHealth(w, http.StatusOK, HealthResponse{Status: "ok"})
}
