package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"timetable.intermodal.org/internal/calendar"
	"timetable.intermodal.org/internal/logging"
	"timetable.intermodal.org/internal/models"
	"timetable.intermodal.org/internal/timetable"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(&w)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) sendUnauthorized(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	setJSONResponseType(&w)
	w.WriteHeader(code)

	response := models.ResponseModel{
		Code:        code,
		CurrentTime: models.ResponseCurrentTime(api.Clock),
		Text:        message,
		Version:     models.ResponseVersion,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.Logger, "failed to encode error response", err)
	}
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "internal server error", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, message string) {
	api.sendError(w, r, http.StatusBadRequest, message)
}

func (api *RestAPI) unavailableResponse(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusServiceUnavailable, "timetable data not loaded")
}

// resolutionErrorResponse maps calendar and timetable errors to responses.
// A date before the validity window is 404, one after it 410; both carry
// the window in the text so clients can tell them apart from an empty day.
// Broken data references are server errors.
func (api *RestAPI) resolutionErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, timetable.ErrMalformedTime):
		api.Metrics.RecordResolutionError("malformed_time")
		api.validationErrorResponse(w, r, err.Error())
	case errors.Is(err, errMalformedDate):
		api.Metrics.RecordResolutionError("malformed_date")
		api.validationErrorResponse(w, r, err.Error())
	case errors.Is(err, calendar.ErrNotYetValid):
		api.Metrics.RecordResolutionError("outside_validity")
		api.sendError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, calendar.ErrNoLongerValid):
		api.Metrics.RecordResolutionError("outside_validity")
		api.sendError(w, r, http.StatusGone, err.Error())
	case errors.Is(err, calendar.ErrUnknownServicePattern):
		api.Metrics.RecordResolutionError("unknown_pattern")
		api.dataErrorResponse(w, r, err)
	case errors.Is(err, calendar.ErrUndefinedException):
		api.Metrics.RecordResolutionError("undefined_exception")
		api.dataErrorResponse(w, r, err)
	default:
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) dataErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "timetable data error", err,
		slog.String("path", r.URL.Path))
	api.sendError(w, r, http.StatusInternalServerError, "timetable data error")
}
