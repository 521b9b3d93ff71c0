/*
Package gtfs finds GTFS feed directories on disk and derives their validity span.

A feed is a directory holding at least agency.txt, routes.txt, trips.txt, stops.txt and
stop_times.txt. The package never parses schedules, routes or shapes; it only reads the two
service-calendar tables.

# Finding feeds

	dirs, err := gtfs.FindFeeds("/srv/gtfs", 2)
	if err != nil {
	    log.Fatal(err)
	}

The walk goes at most maxDepth levels below the root, so feeds can be grouped under
organisational folders. Unreadable subdirectories are skipped.

# Validity span

	span, err := gtfs.NewCalendarExtractor().Extract(dir)
	if errors.Is(err, gtfs.ErrNoValidSpan) {
	    // neither calendar.txt nor calendar_dates.txt has an active service
	}

The span runs from the earliest start_date of any calendar.txt row with at least one weekday
flag set, or the earliest added calendar_dates.txt date, to the latest such date. Columns are
looked up by header name. Rows with the wrong number of fields are skipped.

# Span cache

Parsing calendars of large feeds is slow, so the computed span is stored in
.gtfs_span_cache as "YYYYMMDD,YYYYMMDD". SpanCache.Read trusts that record until
SpanCache.Clear removes it; anything that replaces a feed's tables must clear it.

# Archives

ExtractArchive unpacks a downloaded gtfs.zip into a feed directory, keeping only the known
table names (ValidTables).
*/
package gtfs
