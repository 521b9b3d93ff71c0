package gtfsman

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-manager/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-manager/history"
	"github.com/theoremus-urban-solutions/gtfs-manager/internal/testfeed"
	"github.com/theoremus-urban-solutions/gtfs-manager/remote"
	"github.com/theoremus-urban-solutions/gtfs-manager/utils"
)

const calendarHeader = "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n"

func calendar(from, to string) string {
	return calendarHeader + "WD,1,1,1,1,1,0,0," + from + "," + to + "\n"
}

// countingExtractor counts calls to the real calendar extractor.
type countingExtractor struct {
	calls atomic.Int32
}

func (c *countingExtractor) Extract(dir string) (gtfs.Span, error) {
	c.calls.Add(1)
	return gtfs.NewCalendarExtractor().Extract(dir)
}

type fakeProber struct {
	fresh *remote.Freshness
	err   error
	urls  []string
}

func (p *fakeProber) Probe(_ context.Context, url string, local time.Time) (*remote.Freshness, error) {
	p.urls = append(p.urls, url)
	return p.fresh, p.err
}

type memoryRecorder struct {
	mu     sync.Mutex
	events []history.Event
}

func (r *memoryRecorder) Record(e history.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memoryRecorder) byKind(kind string) []history.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []history.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type scriptedPrompter struct {
	answer string
	asked  int
}

func (p *scriptedPrompter) Prompt(string) (string, error) {
	p.asked++
	return p.answer, nil
}

func newTestManager(t *testing.T, base string, opts Options, deps Deps) *Manager {
	t.Helper()
	opts.BaseFolder = base
	if opts.MaxDepth == 0 {
		opts.MaxDepth = 2
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	}
	m, err := NewManager(opts, deps)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

// TestResolve_CachesSpan tests that a second resolve reads the span cache instead of the tables
func TestResolve_CachesSpan(t *testing.T) {
	base := t.TempDir()
	dir := testfeed.Write(t, filepath.Join(base, "de", "vbb"), testfeed.Minimal(calendar("20240101", "20241231"), ""))
	ex := &countingExtractor{}
	m := newTestManager(t, base, Options{}, Deps{Extractor: ex})

	first, err := m.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, gtfs.SpanCacheFile)); err != nil {
		t.Fatalf("span cache not written: %v", err)
	}
	second, err := m.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if n := ex.calls.Load(); n != 1 {
		t.Errorf("extractor called %d times, want 1", n)
	}
	if !first.ValidFrom.Equal(second.ValidFrom) || !first.ValidTo.Equal(second.ValidTo) {
		t.Errorf("spans differ: %v-%v vs %v-%v", first.ValidFrom, first.ValidTo, second.ValidFrom, second.ValidTo)
	}
	if first.Name != "de/vbb" {
		t.Errorf("Name = %q, want de/vbb", first.Name)
	}
	t.Logf("✓ %s valid %s-%s", first.Name, utils.DisplayDate(first.ValidFrom), utils.DisplayDate(first.ValidTo))
}

func TestResolve_UnreadableCacheFallsBack(t *testing.T) {
	base := t.TempDir()
	dir := testfeed.Write(t, filepath.Join(base, "feed"), testfeed.Minimal(calendar("20240101", "20240630"), ""))
	testfeed.WriteFile(t, dir, gtfs.SpanCacheFile, "garbage")
	ex := &countingExtractor{}
	m := newTestManager(t, base, Options{}, Deps{Extractor: ex})

	f, err := m.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ex.calls.Load() != 1 {
		t.Errorf("extractor called %d times, want 1", ex.calls.Load())
	}
	if got := utils.FormatServiceDate(f.ValidTo); got != "20240630" {
		t.Errorf("ValidTo = %s, want 20240630", got)
	}
	span, ok := gtfs.SpanCache{}.Read(dir)
	if !ok || !span.To.Equal(f.ValidTo) {
		t.Error("cache was not rewritten after fallback")
	}
}

func TestResolve_Errors(t *testing.T) {
	base := t.TempDir()
	m := newTestManager(t, base, Options{}, Deps{})

	if _, err := m.Resolve(context.Background(), filepath.Join(base, "empty")); !errors.Is(err, gtfs.ErrNotAFeed) {
		t.Errorf("err = %v, want ErrNotAFeed", err)
	}

	dir := testfeed.Write(t, filepath.Join(base, "nocal"), testfeed.Minimal("", ""))
	if _, err := m.Resolve(context.Background(), dir); !errors.Is(err, gtfs.ErrNoValidSpan) {
		t.Errorf("err = %v, want ErrNoValidSpan", err)
	}
	if _, err := os.Stat(filepath.Join(dir, gtfs.SpanCacheFile)); !os.IsNotExist(err) {
		t.Error("cache written for a feed without a span")
	}
}

func TestResolve_Sidecars(t *testing.T) {
	base := t.TempDir()
	tables := testfeed.Minimal(calendar("20240101", "20241231"), "")
	tables[gtfs.ShapesTable] = "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\nS,1,1,1\n"
	tables[gtfs.FeedURLFile] = "https://example.org/feed.zip\n"
	tables[gtfs.PostprocessFile] = "echo {feed_path}\n"
	dir := testfeed.Write(t, filepath.Join(base, "feed"), tables)

	m := newTestManager(t, base, Options{}, Deps{})
	f, err := m.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !f.HasShapes || f.SourceURL != "https://example.org/feed.zip" || f.Postprocess != "echo {feed_path}" {
		t.Errorf("feed = %+v", f)
	}
}

func TestResolve_CheckRemote(t *testing.T) {
	base := t.TempDir()
	tables := testfeed.Minimal(calendar("20240101", "20241231"), "")
	tables[gtfs.FeedURLFile] = "https://example.org/feed.zip\n"
	dir := testfeed.Write(t, filepath.Join(base, "feed"), tables)
	rec := &memoryRecorder{}

	prober := &fakeProber{fresh: &remote.Freshness{RemoteNewer: true}}
	m := newTestManager(t, base, Options{CheckRemote: true}, Deps{Prober: prober, History: rec})
	f, err := m.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !f.RemoteNewer() {
		t.Error("RemoteNewer should be set")
	}
	if len(prober.urls) != 1 || prober.urls[0] != "https://example.org/feed.zip" {
		t.Errorf("probed %v", prober.urls)
	}

	failing := &fakeProber{err: &remote.ProbeError{URL: "https://example.org/feed.zip", StatusCode: 503}}
	m = newTestManager(t, base, Options{CheckRemote: true}, Deps{Prober: failing, History: rec})
	f, err = m.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("a failed probe must not fail the resolve: %v", err)
	}
	if !errors.Is(f.ProbeErr, remote.ErrProbe) || f.RemoteNewer() {
		t.Errorf("ProbeErr = %v, RemoteNewer = %v", f.ProbeErr, f.RemoteNewer())
	}

	probes := rec.byKind(history.KindProbe)
	if len(probes) != 2 || !probes[0].OK || probes[1].OK {
		t.Errorf("probe events = %+v", probes)
	}
}

func TestLoadFeeds(t *testing.T) {
	base := t.TempDir()
	testfeed.Write(t, filepath.Join(base, "b"), testfeed.Minimal(calendar("20240101", "20241231"), ""))
	testfeed.Write(t, filepath.Join(base, "a"), testfeed.Minimal(calendar("20230101", "20231231"), ""))
	testfeed.Write(t, filepath.Join(base, "broken"), testfeed.Minimal("", ""))
	testfeed.Write(t, filepath.Join(base, "x", "y", "deep"), testfeed.Minimal(calendar("20240101", "20241231"), ""))

	m := newTestManager(t, base, Options{}, Deps{})
	feeds, feedErrs, err := m.LoadFeeds(context.Background())
	if err != nil {
		t.Fatalf("LoadFeeds failed: %v", err)
	}
	if len(feeds) != 2 || feeds[0].Name != "a" || feeds[1].Name != "b" {
		t.Errorf("feeds = %v", feedNames(feeds))
	}
	if len(feedErrs) != 1 || filepath.Base(feedErrs[0].Path) != "broken" {
		t.Errorf("feed errors = %v", feedErrs)
	}
}

func feedNames(feeds []*Feed) []string {
	out := make([]string, len(feeds))
	for i, f := range feeds {
		out[i] = f.Name
	}
	return out
}

func TestFindFeed(t *testing.T) {
	base := t.TempDir()
	testfeed.Write(t, filepath.Join(base, "de", "vbb"), testfeed.Minimal("", ""))
	testfeed.Write(t, filepath.Join(base, "de", "city"), testfeed.Minimal("", ""))
	testfeed.Write(t, filepath.Join(base, "ch", "city"), testfeed.Minimal("", ""))
	m := newTestManager(t, base, Options{}, Deps{})

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"de/vbb", "de/vbb", false},
		{"vbb", "de/vbb", false},
		{"ch/city", "ch/city", false},
		{"city", "", true},
		{"nope", "", true},
	}
	for _, tt := range tests {
		dir, err := m.FindFeed(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrFeedNotFound) {
				t.Errorf("FindFeed(%q) err = %v, want ErrFeedNotFound", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("FindFeed(%q) failed: %v", tt.name, err)
			continue
		}
		if got := m.nameOf(dir); got != tt.want {
			t.Errorf("FindFeed(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestGenerateCaches(t *testing.T) {
	base := t.TempDir()
	dir := testfeed.Write(t, filepath.Join(base, "feed"), testfeed.Minimal(calendar("20240101", "20240630"), ""))
	testfeed.WriteFile(t, dir, gtfs.SpanCacheFile, "20000101,20000102")
	m := newTestManager(t, base, Options{}, Deps{})

	feeds, _, err := m.GenerateCaches(context.Background())
	if err != nil {
		t.Fatalf("GenerateCaches failed: %v", err)
	}
	if len(feeds) != 1 || utils.FormatServiceDate(feeds[0].ValidFrom) != "20240101" {
		t.Fatalf("stale cache survived: %+v", feeds)
	}
	if span, ok := (gtfs.SpanCache{}).Read(dir); !ok || utils.FormatServiceDate(span.To) != "20240630" {
		t.Errorf("cache not regenerated: %+v %v", span, ok)
	}
}

func TestSetURL(t *testing.T) {
	base := t.TempDir()
	dir := testfeed.Write(t, filepath.Join(base, "feed"), testfeed.Minimal("", ""))

	m := newTestManager(t, base, Options{DontBug: true}, Deps{Prompter: &scriptedPrompter{answer: "unused"}})
	if _, err := m.SetURL("feed", ""); !errors.Is(err, ErrNoSourceURL) {
		t.Errorf("SetURL without url and dontbug: err = %v", err)
	}

	p := &scriptedPrompter{answer: "https://example.org/asked.zip"}
	m = newTestManager(t, base, Options{}, Deps{Prompter: p})
	url, err := m.SetURL("feed", "")
	if err != nil {
		t.Fatalf("SetURL failed: %v", err)
	}
	if p.asked != 1 || url != "https://example.org/asked.zip" {
		t.Errorf("asked %d times, url %q", p.asked, url)
	}
	if stored, _ := gtfs.ReadFeedURL(dir); stored != url {
		t.Errorf("stored url = %q", stored)
	}

	if _, err := m.SetPostprocess("feed", "true"); err != nil {
		t.Fatalf("SetPostprocess failed: %v", err)
	}
	if cmd, _ := gtfs.ReadPostprocess(dir); cmd != "true" {
		t.Errorf("stored cmd = %q", cmd)
	}
}
