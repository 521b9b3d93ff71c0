package gtfs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sidecar files stored next to a feed's tables.
const (
	FeedURLFile     = "feed_url.txt"
	PostprocessFile = "postprocess.txt"
)

// ReadFeedURL returns the stored source URL of the feed in dir, or "" when none is stored.
func ReadFeedURL(dir string) (string, error) {
	return readFirstLine(filepath.Join(dir, FeedURLFile))
}

// WriteFeedURL stores url as the source URL of the feed in dir.
func WriteFeedURL(dir, url string) error {
	return writeLine(filepath.Join(dir, FeedURLFile), url)
}

// ReadPostprocess returns the stored post-process command of the feed in dir, or "".
func ReadPostprocess(dir string) (string, error) {
	return readFirstLine(filepath.Join(dir, PostprocessFile))
}

// WritePostprocess stores cmd as the post-process command of the feed in dir.
func WritePostprocess(dir, cmd string) error {
	return writeLine(filepath.Join(dir, PostprocessFile), cmd)
}

func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	return "", sc.Err()
}

func writeLine(path, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("refusing to store empty value in %s", filepath.Base(path))
	}
	return os.WriteFile(path, []byte(value+"\n"), 0o644)
}
