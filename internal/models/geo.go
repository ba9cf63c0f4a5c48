package models

// SubrouteShape carries a subroute's path as encoded polylines. The path is
// split wherever a stop has no coordinates.
type SubrouteShape struct {
	SubrouteID string   `json:"subrouteId"`
	Name       string   `json:"name"`
	Segments   []string `json:"segments"`
	StopIDs    []string `json:"stopIds"`
}

type RouteShapeEntry struct {
	RouteID   string          `json:"routeId"`
	Subroutes []SubrouteShape `json:"subroutes"`
}

type NearbyStop struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Distance float64 `json:"distance"`
}
