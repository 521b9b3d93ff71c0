// Package testfeed builds small GTFS feed directories and archives for tests.
package testfeed

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// Tables maps a table file name such as "calendar.txt" to its CSV content.
type Tables map[string]string

// Minimal returns the required tables with one row each plus the given calendar and
// calendar_dates content. Empty calendar strings leave the table out.
func Minimal(calendar, calendarDates string) Tables {
	t := Tables{
		"agency.txt":     "agency_id,agency_name,agency_url,agency_timezone\nA,Agency,https://example.org,Europe/Berlin\n",
		"routes.txt":     "route_id,agency_id,route_short_name,route_type\nR1,A,1,3\n",
		"trips.txt":      "route_id,service_id,trip_id\nR1,WD,T1\n",
		"stops.txt":      "stop_id,stop_name,stop_lat,stop_lon\nS1,Main,52.5,13.4\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\nT1,08:00:00,08:00:00,S1,1\n",
	}
	if calendar != "" {
		t["calendar.txt"] = calendar
	}
	if calendarDates != "" {
		t["calendar_dates.txt"] = calendarDates
	}
	return t
}

// Write creates dir and writes every table into it.
func Write(t *testing.T, dir string, tables Tables) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	for name, content := range tables {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

// WriteFile writes a single file below dir, creating parents.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// Zip packs tables into an archive. prefix, when set, nests every entry below it.
func Zip(t *testing.T, prefix string, tables Tables) []byte {
	t.Helper()
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(prefix + name)
		if err != nil {
			t.Fatalf("Failed to add %s to archive: %v", name, err)
		}
		if _, err := w.Write([]byte(tables[name])); err != nil {
			t.Fatalf("Failed to write %s to archive: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close archive: %v", err)
	}
	return buf.Bytes()
}
