package internal

import "sync"

// FeedLocks hands out one mutex per feed directory.
// Entries are never removed; a scan holds at most a few hundred feeds.
type FeedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFeedLocks creates an empty lock set.
func NewFeedLocks() *FeedLocks {
	return &FeedLocks{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the mutex for path and returns its unlock func.
func (l *FeedLocks) Lock(path string) func() {
	l.mu.Lock()
	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
