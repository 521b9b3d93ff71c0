package gtfs

import (
	"errors"
	"time"
)

// Table file names used by the manager.
const (
	AgencyTable        = "agency.txt"
	RoutesTable        = "routes.txt"
	TripsTable         = "trips.txt"
	StopsTable         = "stops.txt"
	StopTimesTable     = "stop_times.txt"
	CalendarTable      = "calendar.txt"
	CalendarDatesTable = "calendar_dates.txt"
	ShapesTable        = "shapes.txt"
	FeedInfoTable      = "feed_info.txt"
	TransfersTable     = "transfers.txt"
	FrequenciesTable   = "frequencies.txt"
)

// IndicatorTable's modification time stands in for the age of the whole feed.
const IndicatorTable = TripsTable

// RequiredTables must all be present for a directory to count as a feed.
// calendar.txt is deliberately not required.
var RequiredTables = []string{AgencyTable, RoutesTable, TripsTable, StopsTable, StopTimesTable}

// ValidTables are the tables kept when an archive is extracted into a feed directory.
var ValidTables = []string{
	TransfersTable, FrequenciesTable, AgencyTable, RoutesTable, TripsTable, StopsTable,
	StopTimesTable, FeedInfoTable, CalendarTable, CalendarDatesTable, ShapesTable,
}

var (
	// ErrNotAFeed is returned when a directory lacks one of the RequiredTables.
	ErrNotAFeed = errors.New("not a GTFS feed")
	// ErrMalformedTable marks a row whose field count or dates do not fit its table. Such rows are skipped.
	ErrMalformedTable = errors.New("malformed table row")
	// ErrNoValidSpan is returned when no calendar row marks a service as active.
	ErrNoValidSpan = errors.New("no active service found in calendar tables")
	// ErrCacheUnreadable marks a span cache record that could not be parsed.
	ErrCacheUnreadable = errors.New("span cache unreadable")
)

// Span is an inclusive range of service dates.
type Span struct {
	From time.Time
	To   time.Time
}
