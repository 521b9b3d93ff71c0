// Package utils provides small shared helpers for gtfs-manager.
//
// It contains:
//   - GTFS service date parsing and formatting (YYYYMMDD)
//   - Calendar-day arithmetic used by the update scheduler
package utils
