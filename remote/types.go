package remote

import (
	"errors"
	"fmt"
	"time"
)

// ErrProbe is matched by every ProbeError.
var ErrProbe = errors.New("freshness probe failed")

// Freshness compares the remote copy of a feed with the local one.
type Freshness struct {
	RemoteNewer bool
	Remote      time.Time
	Local       time.Time
}

// ProbeError reports a transport or protocol failure while probing URL.
type ProbeError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ProbeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("probe %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

func (e *ProbeError) Is(target error) bool { return target == ErrProbe }
