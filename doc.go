/*
Package gtfsman manages a folder of GTFS feeds: it tells which feeds are still valid,
which are due for an update, and whether their publishers have a newer copy.

# Basic Usage

	client := remote.NewClient(remote.Options{ProbeTimeout: 30 * time.Second})
	mgr, err := gtfsman.NewManager(gtfsman.Options{
	    BaseFolder: "/srv/gtfs",
	    MaxDepth:   2,
	}, gtfsman.Deps{Prober: client, Downloader: client})
	if err != nil {
	    log.Fatal(err)
	}

	feeds, failed, err := mgr.LoadFeeds(ctx)

Each Feed carries its validity window, computed from calendar.txt and calendar_dates.txt
and cached in the feed directory (see package gtfs).

# Updates

UpdateDue decides per feed whether an update is needed:

  - ForceNormal: the feed's last service day is in the past
  - ForceElevated: the feed ends within the next 7 days, or already ended
  - ForceAlways: always

UpdateAll downloads, unpacks and post-processes every due feed, then clears and rebuilds
its span cache. Failures are reported per feed and never stop the batch.

# Remote freshness

With Options.CheckRemote set, Resolve sends a HEAD request to each feed's stored URL and
compares Last-Modified with the modification time of trips.txt.
*/
package gtfsman
