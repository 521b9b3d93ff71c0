package gtfs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theoremus-urban-solutions/gtfs-manager/utils"
)

// SpanCacheFile is written into every feed directory once its span has been computed.
const SpanCacheFile = ".gtfs_span_cache"

// SpanCache persists a feed's computed Span next to its tables so large calendars are
// parsed only once.
//
// The record is trusted as-is until Clear is called: it is never compared against the
// tables' modification times. Whoever rewrites a feed's tables must clear its cache.
//
// Example:
//
//	cache := gtfs.SpanCache{}
//	span, ok := cache.Read(dir)
//	if !ok {
//	    span, err = gtfs.NewCalendarExtractor().Extract(dir)
//	    // handle error
//	    _ = cache.Write(dir, span)
//	}
type SpanCache struct{}

// Read returns the cached span of the feed in dir. Absent and malformed records are both a miss.
func (SpanCache) Read(dir string) (Span, bool) {
	span, err := readSpanFile(filepath.Join(dir, SpanCacheFile))
	if err != nil {
		return Span{}, false
	}
	return span, true
}

// Inspect is Read with the reason for a miss: os.ErrNotExist or ErrCacheUnreadable.
func (SpanCache) Inspect(dir string) (Span, error) {
	return readSpanFile(filepath.Join(dir, SpanCacheFile))
}

// Write overwrites the cache record of the feed in dir.
// The record is written to a temp file and renamed so readers never see a partial line.
func (SpanCache) Write(dir string, span Span) error {
	line := utils.FormatServiceDate(span.From) + "," + utils.FormatServiceDate(span.To)
	tmp, err := os.CreateTemp(dir, SpanCacheFile+".*")
	if err != nil {
		return fmt.Errorf("failed to write span cache: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(line); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write span cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write span cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, SpanCacheFile)); err != nil {
		return fmt.Errorf("failed to write span cache: %w", err)
	}
	return nil
}

// Clear removes the cache record of the feed in dir. A missing record is not an error.
func (SpanCache) Clear(dir string) error {
	err := os.Remove(filepath.Join(dir, SpanCacheFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear span cache: %w", err)
	}
	return nil
}

// ClearAll clears the cache of every feed FindFeeds discovers under root.
// It keeps going after a failed removal and returns the number of feeds visited.
func (c SpanCache) ClearAll(root string, maxDepth int) (int, error) {
	dirs, err := FindFeeds(root, maxDepth)
	if err != nil {
		return 0, err
	}
	var errs []error
	for _, dir := range dirs {
		if err := c.Clear(dir); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
		}
	}
	return len(dirs), errors.Join(errs...)
}

func readSpanFile(path string) (Span, error) {
	f, err := os.Open(path)
	if err != nil {
		return Span{}, err
	}
	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return Span{}, fmt.Errorf("%w: empty record", ErrCacheUnreadable)
	}
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 2 {
		return Span{}, fmt.Errorf("%w: expected 2 fields, got %d", ErrCacheUnreadable, len(parts))
	}
	from, err := utils.ParseServiceDate(parts[0])
	if err != nil {
		return Span{}, fmt.Errorf("%w: %w", ErrCacheUnreadable, err)
	}
	to, err := utils.ParseServiceDate(parts[1])
	if err != nil {
		return Span{}, fmt.Errorf("%w: %w", ErrCacheUnreadable, err)
	}
	return Span{From: from, To: to}, nil
}
