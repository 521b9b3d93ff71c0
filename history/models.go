package history

import "time"

// Event kinds.
const (
	KindUpdate = "update"
	KindInit   = "init"
	KindProbe  = "probe"
)

// Event is one recorded update or probe outcome for a feed.
type Event struct {
	ID        int64
	Feed      string
	Kind      string
	OK        bool
	Detail    string
	ValidFrom string // YYYYMMDD, empty when unknown
	ValidTo   string
	At        time.Time
}

// QueryOpts filters Events.
type QueryOpts struct {
	Feed  string
	Kind  string
	Limit int
}
