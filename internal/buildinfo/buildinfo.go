// Package buildinfo holds version details stamped into the binary with
//
//	-ldflags "-X timetable.intermodal.org/internal/buildinfo.Version=..."
//
// Values left unset are filled from the module's embedded VCS settings.
package buildinfo

import (
	"runtime/debug"
)

var (
	Version    = "dev"
	CommitHash = ""
	CommitTime = ""
	Branch     = ""
	BuildTime  = ""
	// Dirty is "true" when the tree had uncommitted changes.
	Dirty = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	fill(info.Settings)
}

func fill(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if CommitHash == "" {
				CommitHash = s.Value
			}
		case "vcs.time":
			if CommitTime == "" {
				CommitTime = s.Value
			}
		case "vcs.modified":
			if Dirty == "" {
				Dirty = s.Value
			}
		}
	}
}

// ShortHash is the seven character commit id, or "unknown".
func ShortHash() string {
	if len(CommitHash) >= 7 {
		return CommitHash[:7]
	}
	return "unknown"
}

func IsDirty() bool {
	return Dirty == "true"
}
