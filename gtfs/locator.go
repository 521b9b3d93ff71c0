package gtfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/theoremus-urban-solutions/gtfs-manager/internal"
)

// FindFeeds returns every directory below root (root included, at most maxDepth levels down)
// that directly contains all RequiredTables. Order is unspecified.
//
// Directories that cannot be read are skipped with a warning, so the result may be partial.
// Only an unreadable root is reported as an error.
func FindFeeds(root string, maxDepth int) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	var out []string
	walkFeeds(root, entries, maxDepth, &out)
	return out, nil
}

func walkFeeds(dir string, entries []fs.DirEntry, depthLeft int, out *[]string) {
	if countRequired(dir, entries) == len(RequiredTables) {
		*out = append(*out, dir)
	}
	if depthLeft <= 0 {
		return
	}
	for _, e := range entries {
		sub := filepath.Join(dir, e.Name())
		if !isDir(sub, e) {
			continue
		}
		children, err := os.ReadDir(sub)
		if err != nil {
			internal.Logger().Warn("skipping unreadable directory", "path", sub, "err", err)
			continue
		}
		walkFeeds(sub, children, depthLeft-1, out)
	}
}

// IsFeed reports whether dir directly contains all RequiredTables.
func IsFeed(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return countRequired(dir, entries) == len(RequiredTables)
}

func countRequired(dir string, entries []fs.DirEntry) int {
	n := 0
	for _, e := range entries {
		if !isRequired(e.Name()) {
			continue
		}
		if isFile(filepath.Join(dir, e.Name()), e) {
			n++
		}
	}
	return n
}

func isRequired(name string) bool {
	for _, t := range RequiredTables {
		if t == name {
			return true
		}
	}
	return false
}

// isFile and isDir follow symlinks like a plain stat would.
func isFile(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
