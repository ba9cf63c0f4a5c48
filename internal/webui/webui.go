// Package webui serves operator-facing pages next to the JSON API: a debug
// dump of the loaded feed and the static assets of the printable timetables.
package webui

import (
	"net/http"

	"timetable.intermodal.org/internal/app"
)

type WebUI struct {
	*app.Application
	// AssetsDir holds the stylesheets and images of the print pages.
	AssetsDir string
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/", webUI.debugIndexHandler)
	mux.HandleFunc("GET /assets/{file}", webUI.assetsHandler)
}
