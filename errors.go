package gtfsman

import "errors"

var (
	// ErrFeedNotFound is returned when no feed below the base folder has the requested name.
	ErrFeedNotFound = errors.New("feed not found")
	// ErrNoSourceURL is returned when a feed has no stored URL and prompting is disabled.
	ErrNoSourceURL = errors.New("no feed URL stored")
	// ErrNoPostprocess is returned by set-pp when no command was given and prompting is disabled.
	ErrNoPostprocess = errors.New("no post-process command given")
)

// FeedError ties a resolution failure to the directory it happened in.
type FeedError struct {
	Path string
	Err  error
}

func (e FeedError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FeedError) Unwrap() error { return e.Err }
