package models

// BuildProperties describes the running binary.
type BuildProperties struct {
	Version    string `json:"version"`
	CommitID   string `json:"commitId"`
	CommitTime string `json:"commitTime,omitempty"`
	Branch     string `json:"branch,omitempty"`
	BuildTime  string `json:"buildTime,omitempty"`
	Dirty      bool   `json:"dirty"`
}

// ConfigModel describes the server build and the feed currently served.
type ConfigModel struct {
	Build           BuildProperties `json:"build"`
	FeedID          string          `json:"feedId"`
	Source          string          `json:"source"`
	Resolver        string          `json:"resolver"`
	ServiceDateFrom string          `json:"serviceDateFrom,omitempty"`
	ServiceDateTo   string          `json:"serviceDateTo,omitempty"`
	ServicePatterns int             `json:"servicePatterns"`
	Routes          int             `json:"routes"`
	LoadedAt        int64           `json:"loadedAt"`
}
