package gtfs

import (
	"testing"

	"github.com/theoremus-urban-solutions/gtfs-manager/internal/testfeed"
)

func TestSidecars(t *testing.T) {
	dir := t.TempDir()

	url, err := ReadFeedURL(dir)
	if err != nil || url != "" {
		t.Fatalf("ReadFeedURL on empty dir = %q, %v", url, err)
	}
	if err := WriteFeedURL(dir, " https://example.org/gtfs.zip \n"); err != nil {
		t.Fatalf("WriteFeedURL failed: %v", err)
	}
	if url, _ = ReadFeedURL(dir); url != "https://example.org/gtfs.zip" {
		t.Errorf("ReadFeedURL = %q", url)
	}

	if err := WritePostprocess(dir, "echo {feed_path}"); err != nil {
		t.Fatalf("WritePostprocess failed: %v", err)
	}
	if cmd, _ := ReadPostprocess(dir); cmd != "echo {feed_path}" {
		t.Errorf("ReadPostprocess = %q", cmd)
	}

	if err := WriteFeedURL(dir, "   "); err == nil {
		t.Error("storing an empty URL should fail")
	}
}

func TestReadFeedURL_FirstLineOnly(t *testing.T) {
	dir := t.TempDir()
	testfeed.WriteFile(t, dir, FeedURLFile, "https://a.example/feed.zip\nhttps://b.example/feed.zip\n")
	url, err := ReadFeedURL(dir)
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://a.example/feed.zip" {
		t.Errorf("ReadFeedURL = %q", url)
	}
}
