package gtfsman

import (
	"time"

	"github.com/theoremus-urban-solutions/gtfs-manager/remote"
)

// Feed is one GTFS feed directory below the base folder.
type Feed struct {
	Name        string // path relative to the base folder, slash separated
	FullPath    string
	ValidFrom   time.Time
	ValidTo     time.Time
	SourceURL   string
	Postprocess string
	HasShapes   bool

	// Freshness is set only when a remote check ran and the server sent Last-Modified.
	Freshness *remote.Freshness
	// ProbeErr holds a failed remote check; the rest of the feed is still valid.
	ProbeErr error
}

// RemoteNewer reports whether a freshness check found a newer remote copy.
func (f *Feed) RemoteNewer() bool {
	return f.Freshness != nil && f.Freshness.RemoteNewer
}
