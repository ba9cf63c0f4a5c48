package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"timetable.intermodal.org/internal/appconf"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var debugDataTypes = []string{"summary", "calendar", "legend", "periods", "index", "routes", "stops", "store"}

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

type debugData struct {
	Title string
	Types []string
	Pre   string
}

type feedSummary struct {
	Source          string
	Hash            string
	Resolver        string
	ServicePatterns int
	Routes          int
	Stops           int
	Departures      int
	LoadedAt        string
}

func writeDebugData(w http.ResponseWriter, title string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Types: debugDataTypes,
		Pre:   dumper.Sdump(data),
	})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps one part of the loaded feed. It is not served in
// production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Application == nil || webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}
	if webUI.Feed == nil {
		http.Error(w, "timetable data not loaded", http.StatusServiceUnavailable)
		return
	}
	snap, release, err := webUI.Feed.Acquire()
	defer release()
	if err != nil {
		http.Error(w, "timetable data not loaded", http.StatusServiceUnavailable)
		return
	}
	bundle := snap.Bundle

	var (
		data  any
		title string
	)
	switch r.URL.Query().Get("dataType") {
	case "calendar":
		data, title = bundle.Matrix, "Calendar matrix"
	case "legend":
		data, title = bundle.Legend.Entries(), "Exception legend"
	case "periods":
		data, title = bundle.Classifier, "Period classifier"
	case "index":
		if bundle.Index == nil {
			data = "no precomputed index; dates are resolved by rule"
		} else {
			data = bundle.Index.Window()
		}
		title = "Date to service pattern index"
	case "routes":
		data, title = bundle.Routes, "Routes"
	case "stops":
		data, title = bundle.Stops, "Stops"
	case "store":
		counts, err := snap.Store.TableCounts(r.Context())
		if err != nil {
			slog.Error("failed to count store tables", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data, title = counts, "Store table counts"
	default:
		data = feedSummary{
			Source:          bundle.Source,
			Hash:            bundle.Hash,
			Resolver:        bundle.ResolverKind(),
			ServicePatterns: bundle.Matrix.Len(),
			Routes:          len(bundle.Routes),
			Stops:           len(bundle.Stops),
			Departures:      bundle.DepartureCount(),
			LoadedAt:        snap.LoadedAt.Format("2006-01-02 15:04:05 MST"),
		}
		title = "Feed summary"
	}

	writeDebugData(w, title, data)
}
