package gtfs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/theoremus-urban-solutions/gtfs-manager/internal/testfeed"
)

func relFeeds(t *testing.T, root string, maxDepth int) []string {
	t.Helper()
	dirs, err := FindFeeds(root, maxDepth)
	if err != nil {
		t.Fatalf("FindFeeds failed: %v", err)
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		rel, err := filepath.Rel(root, d)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func TestFindFeeds_DepthLimit(t *testing.T) {
	root := t.TempDir()
	testfeed.Write(t, filepath.Join(root, "a"), testfeed.Minimal("", ""))
	testfeed.Write(t, filepath.Join(root, "x", "b"), testfeed.Minimal("", ""))
	testfeed.Write(t, filepath.Join(root, "x", "y", "c"), testfeed.Minimal("", ""))

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{}},
		{1, []string{"a"}},
		{2, []string{"a", "x/b"}},
		{3, []string{"a", "x/b", "x/y/c"}},
	}
	for _, tt := range tests {
		got := relFeeds(t, root, tt.depth)
		if len(got) != len(tt.want) {
			t.Errorf("depth %d: got %v, want %v", tt.depth, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("depth %d: got %v, want %v", tt.depth, got, tt.want)
				break
			}
		}
	}
	t.Log("✓ Depth limit respected")
}

func TestFindFeeds_RootIsFeed(t *testing.T) {
	root := testfeed.Write(t, t.TempDir(), testfeed.Minimal("", ""))
	got := relFeeds(t, root, 0)
	if len(got) != 1 || got[0] != "." {
		t.Errorf("got %v, want [.]", got)
	}
}

func TestFindFeeds_IncompleteDirectory(t *testing.T) {
	root := t.TempDir()
	tables := testfeed.Minimal("", "")
	delete(tables, StopTimesTable)
	testfeed.Write(t, filepath.Join(root, "partial"), tables)

	if got := relFeeds(t, root, 2); len(got) != 0 {
		t.Errorf("got %v, want no feeds", got)
	}
	if IsFeed(filepath.Join(root, "partial")) {
		t.Error("directory without stop_times.txt reported as feed")
	}
}

func TestFindFeeds_TableMustBeFile(t *testing.T) {
	root := t.TempDir()
	tables := testfeed.Minimal("", "")
	delete(tables, TripsTable)
	dir := testfeed.Write(t, filepath.Join(root, "feed"), tables)
	if err := os.Mkdir(filepath.Join(dir, TripsTable), 0o755); err != nil {
		t.Fatal(err)
	}
	if IsFeed(dir) {
		t.Error("directory named trips.txt counted as a table")
	}
}

func TestFindFeeds_FollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := testfeed.Write(t, filepath.Join(t.TempDir(), "real"), testfeed.Minimal("", ""))
	if err := os.Symlink(target, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	got := relFeeds(t, root, 1)
	if len(got) != 1 || got[0] != "linked" {
		t.Errorf("got %v, want [linked]", got)
	}
}

func TestFindFeeds_MissingRoot(t *testing.T) {
	if _, err := FindFeeds(filepath.Join(t.TempDir(), "nope"), 2); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestFindFeeds_SkipsUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	testfeed.Write(t, filepath.Join(root, "good"), testfeed.Minimal("", ""))
	locked := testfeed.Write(t, filepath.Join(root, "locked", "feed"), testfeed.Minimal("", ""))
	lockedParent := filepath.Dir(locked)
	if err := os.Chmod(lockedParent, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(lockedParent, 0o755) })

	got := relFeeds(t, root, 2)
	if len(got) != 1 || got[0] != "good" {
		t.Errorf("got %v, want [good]", got)
	}
	t.Log("✓ Unreadable directory skipped")
}
