package restapi

import (
	"net/http"

	"timetable.intermodal.org/internal/models"
)

// calendarDayHandler classifies a date and lists the service patterns that
// run on it.
func (api *RestAPI) calendarDayHandler(w http.ResponseWriter, r *http.Request) {
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

	bundle := snap.Bundle
	if err := snap.Resolver.CheckDate(date); err != nil {
		api.resolutionErrorResponse(w, r, err)
		return
	}

	var active []string
	for _, id := range bundle.Matrix.IDs() {
		running, err := snap.Resolver.IsActive(id, date)
		if err != nil {
			api.resolutionErrorResponse(w, r, err)
			return
		}
		if running {
			active = append(active, id)
		}
	}

	entry := models.NewCalendarDayEntry(date, bundle.Classifier.Classify(date), bundle.ResolverKind(), active)
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}
