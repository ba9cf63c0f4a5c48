package restapi

import (
	"net/http"

	"timetable.intermodal.org/internal/buildinfo"
	"timetable.intermodal.org/internal/models"
)

func (api *RestAPI) configHandler(w http.ResponseWriter, r *http.Request) {
	snap, release, ok := api.acquire(w, r)
	defer release()
	if !ok {
		return
	}

	bundle := snap.Bundle
	feedID := bundle.Hash
	if len(feedID) > 12 {
		feedID = feedID[:12]
	}

	configEntry := models.ConfigModel{
		Build: models.BuildProperties{
			Version:    buildinfo.Version,
			CommitID:   buildinfo.ShortHash(),
			CommitTime: buildinfo.CommitTime,
			Branch:     buildinfo.Branch,
			BuildTime:  buildinfo.BuildTime,
			Dirty:      buildinfo.IsDirty(),
		},
		FeedID:          feedID,
		Source:          bundle.Source,
		Resolver:        bundle.ResolverKind(),
		ServicePatterns: bundle.Matrix.Len(),
		Routes:          len(bundle.Routes),
		LoadedAt:        snap.LoadedAt.UnixMilli(),
	}
	if window := bundle.ServiceWindow(); !window.IsZero() {
		configEntry.ServiceDateFrom = window.From.String()
		configEntry.ServiceDateTo = window.To.String()
	}

	api.sendResponse(w, r, models.NewEntryResponse(configEntry, api.Clock))
}
