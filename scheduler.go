package gtfsman

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-manager/utils"
)

// ForceLevel widens the window in which a feed counts as due for an update.
type ForceLevel int

const (
	// ForceNormal updates feeds whose coverage has ended.
	ForceNormal ForceLevel = iota
	// ForceElevated also updates feeds ending within the next week.
	ForceElevated
	// ForceAlways updates every feed.
	ForceAlways
)

// expiryWarningDays is how close to its end a feed counts as expiring.
const expiryWarningDays = 7

func (l ForceLevel) String() string {
	switch l {
	case ForceNormal:
		return "normal"
	case ForceElevated:
		return "elevated"
	case ForceAlways:
		return "always"
	default:
		return "ForceLevel(" + strconv.Itoa(int(l)) + ")"
	}
}

// ParseForceLevel accepts 0, 1, 2 or normal, elevated, always.
func ParseForceLevel(s string) (ForceLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "normal", "":
		return ForceNormal, nil
	case "1", "elevated":
		return ForceElevated, nil
	case "2", "always":
		return ForceAlways, nil
	}
	return ForceNormal, fmt.Errorf("invalid force level %q (want 0, 1 or 2)", s)
}

// daysPastEnd is positive once validTo lies in the past.
func daysPastEnd(validTo, now time.Time) int {
	return utils.DaysBetween(validTo, now)
}

// UpdateDue decides whether a feed whose coverage ends on validTo should be refreshed.
func UpdateDue(validTo, now time.Time, level ForceLevel) bool {
	days := daysPastEnd(validTo, now)
	switch level {
	case ForceAlways:
		return true
	case ForceElevated:
		return days > 0 || days > -expiryWarningDays
	default:
		return days > 0
	}
}

// Expired reports whether the feed's coverage ended before today.
func Expired(validTo, now time.Time) bool {
	return daysPastEnd(validTo, now) > 0
}

// Status classifies a feed's validity window relative to today.
type Status int

const (
	StatusActive Status = iota
	StatusExpiring
	StatusExpired
	StatusUpcoming
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusExpiring:
		return "expiring"
	case StatusExpired:
		return "expired"
	case StatusUpcoming:
		return "upcoming"
	default:
		return "unknown"
	}
}

// FeedStatus classifies [validFrom, validTo] against now.
// A feed that only starts in the future is StatusUpcoming whatever its end date.
func FeedStatus(validFrom, validTo, now time.Time) Status {
	if utils.DaysBetween(validFrom, now) < 0 {
		return StatusUpcoming
	}
	days := daysPastEnd(validTo, now)
	switch {
	case days > 0:
		return StatusExpired
	case days > -expiryWarningDays:
		return StatusExpiring
	default:
		return StatusActive
	}
}
