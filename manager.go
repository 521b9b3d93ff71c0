package gtfsman

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-manager/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-manager/history"
	"github.com/theoremus-urban-solutions/gtfs-manager/internal"
	"github.com/theoremus-urban-solutions/gtfs-manager/remote"
	"github.com/theoremus-urban-solutions/gtfs-manager/utils"
)

// Prober checks whether a feed's source has a newer copy than local.
type Prober interface {
	Probe(ctx context.Context, url string, local time.Time) (*remote.Freshness, error)
}

// Downloader fetches a feed archive into a directory.
type Downloader interface {
	Download(ctx context.Context, url, destDir, name string) (string, error)
}

// Recorder stores update and probe outcomes.
type Recorder interface {
	Record(e history.Event) error
}

// Prompter asks the user for a missing value.
type Prompter interface {
	Prompt(label string) (string, error)
}

// PostprocessRunner runs a feed's stored post-process command.
type PostprocessRunner func(ctx context.Context, cmd, feedPath string) error

// Options is the per-invocation context of a Manager.
type Options struct {
	BaseFolder  string
	MaxDepth    int
	CheckRemote bool // probe each feed's URL while resolving
	DontBug     bool // never prompt; skip what cannot be done
	Concurrency int  // feeds updated in parallel by UpdateAll, at least 1
	Now         func() time.Time
}

// Deps are the collaborators of a Manager. Nil fields fall back to defaults or are skipped.
type Deps struct {
	Extractor   gtfs.SpanExtractor // default: a fresh gtfs.CalendarExtractor per feed
	Prober      Prober             // required when Options.CheckRemote is set
	Downloader  Downloader         // required for Update, UpdateAll and Init
	History     Recorder
	Prompter    Prompter
	Postprocess PostprocessRunner // default: RunPostprocess
}

// Manager resolves, checks and updates the feeds below one base folder.
type Manager struct {
	opts  Options
	deps  Deps
	cache gtfs.SpanCache
	locks *internal.FeedLocks
}

// NewManager creates a Manager.
func NewManager(opts Options, deps Deps) (*Manager, error) {
	if opts.BaseFolder == "" {
		return nil, errors.New("base folder is required")
	}
	abs, err := filepath.Abs(opts.BaseFolder)
	if err != nil {
		return nil, fmt.Errorf("resolving base folder: %w", err)
	}
	opts.BaseFolder = abs
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Postprocess == nil {
		deps.Postprocess = RunPostprocess
	}
	return &Manager{opts: opts, deps: deps, locks: internal.NewFeedLocks()}, nil
}

// BaseFolder returns the absolute base folder.
func (m *Manager) BaseFolder() string { return m.opts.BaseFolder }

// Now returns the manager's clock.
func (m *Manager) Now() time.Time { return m.opts.Now() }

// Resolve builds the Feed for the directory at path.
// The span comes from the span cache when present, otherwise from the calendar tables,
// after which the cache is rewritten. A failed remote check is stored in Feed.ProbeErr.
func (m *Manager) Resolve(ctx context.Context, path string) (*Feed, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if !gtfs.IsFeed(abs) {
		return nil, fmt.Errorf("%s: %w", abs, gtfs.ErrNotAFeed)
	}

	span, err := m.span(abs)
	if err != nil {
		return nil, err
	}

	f := &Feed{
		Name:      m.nameOf(abs),
		FullPath:  abs,
		ValidFrom: span.From,
		ValidTo:   span.To,
	}
	if f.SourceURL, err = gtfs.ReadFeedURL(abs); err != nil {
		return nil, fmt.Errorf("reading feed url: %w", err)
	}
	if f.Postprocess, err = gtfs.ReadPostprocess(abs); err != nil {
		return nil, fmt.Errorf("reading postprocess command: %w", err)
	}
	if _, err := os.Stat(filepath.Join(abs, gtfs.ShapesTable)); err == nil {
		f.HasShapes = true
	}

	if m.opts.CheckRemote {
		m.checkFreshness(ctx, f)
	}
	return f, nil
}

func (m *Manager) span(dir string) (gtfs.Span, error) {
	unlock := m.locks.Lock(dir)
	defer unlock()

	span, err := m.cache.Inspect(dir)
	if err == nil {
		return span, nil
	}
	if errors.Is(err, gtfs.ErrCacheUnreadable) {
		internal.Logger().Debug("ignoring span cache", "path", dir, "err", err)
	}

	extractor := m.deps.Extractor
	var stats *gtfs.ExtractStats
	if extractor == nil {
		ce := gtfs.NewCalendarExtractor()
		extractor, stats = ce, &ce.Stats
	}
	span, err = extractor.Extract(dir)
	if err != nil {
		return gtfs.Span{}, err
	}
	if stats != nil && stats.Skipped > 0 {
		internal.Logger().Warn("skipped malformed calendar rows", "path", dir, "rows", stats.Rows, "skipped", stats.Skipped)
	}
	if err := m.cache.Write(dir, span); err != nil {
		internal.Logger().Warn("could not write span cache", "path", dir, "err", err)
	}
	return span, nil
}

func (m *Manager) checkFreshness(ctx context.Context, f *Feed) {
	if f.SourceURL == "" || m.deps.Prober == nil {
		return
	}
	info, err := os.Stat(filepath.Join(f.FullPath, gtfs.IndicatorTable))
	if err != nil {
		f.ProbeErr = fmt.Errorf("reading %s: %w", gtfs.IndicatorTable, err)
		return
	}
	f.Freshness, f.ProbeErr = m.deps.Prober.Probe(ctx, f.SourceURL, info.ModTime())
	if f.ProbeErr != nil {
		internal.Logger().Warn("freshness check failed", "feed", f.Name, "err", f.ProbeErr)
	}

	e := history.Event{Feed: f.Name, Kind: history.KindProbe, OK: f.ProbeErr == nil}
	switch {
	case f.ProbeErr != nil:
		e.Detail = f.ProbeErr.Error()
	case f.Freshness == nil:
		e.Detail = "no Last-Modified"
	case f.Freshness.RemoteNewer:
		e.Detail = "remote newer, modified " + utils.Iso8601(f.Freshness.Remote)
	default:
		e.Detail = "up to date"
	}
	m.record(e)
}

func (m *Manager) nameOf(abs string) string {
	rel, err := filepath.Rel(m.opts.BaseFolder, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// FeedPaths lists the feed directories below the base folder.
func (m *Manager) FeedPaths() ([]string, error) {
	return gtfs.FindFeeds(m.opts.BaseFolder, m.opts.MaxDepth)
}

// LoadFeeds resolves every feed below the base folder, sorted by name.
// Feeds that fail to resolve are returned as FeedErrors instead of aborting the scan.
func (m *Manager) LoadFeeds(ctx context.Context) ([]*Feed, []FeedError, error) {
	dirs, err := m.FeedPaths()
	if err != nil {
		return nil, nil, err
	}
	var (
		feeds []*Feed
		errs  []FeedError
	)
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return feeds, errs, err
		}
		f, err := m.Resolve(ctx, dir)
		if err != nil {
			internal.Logger().Error("error while parsing feed", "path", dir, "err", err)
			errs = append(errs, FeedError{Path: dir, Err: err})
			continue
		}
		feeds = append(feeds, f)
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Name < feeds[j].Name })
	return feeds, errs, nil
}

// FindFeed returns the directory of the feed called name: its path relative to the base
// folder, or its directory name when that is unique.
func (m *Manager) FindFeed(name string) (string, error) {
	dirs, err := m.FeedPaths()
	if err != nil {
		return "", err
	}
	var byBase []string
	for _, dir := range dirs {
		if m.nameOf(dir) == name {
			return dir, nil
		}
		if filepath.Base(dir) == name {
			byBase = append(byBase, dir)
		}
	}
	if len(byBase) == 1 {
		return byBase[0], nil
	}
	if len(byBase) > 1 {
		return "", fmt.Errorf("%q matches %d feeds, use the full name: %w", name, len(byBase), ErrFeedNotFound)
	}
	return "", fmt.Errorf("%q: %w", name, ErrFeedNotFound)
}

// FeedByName resolves the feed called name (see FindFeed).
func (m *Manager) FeedByName(ctx context.Context, name string) (*Feed, error) {
	dir, err := m.FindFeed(name)
	if err != nil {
		return nil, err
	}
	return m.Resolve(ctx, dir)
}

// ClearCaches removes the span cache of every feed and returns how many feeds were visited.
func (m *Manager) ClearCaches() (int, error) {
	return m.cache.ClearAll(m.opts.BaseFolder, m.opts.MaxDepth)
}

// ClearCache removes the span cache of the feed in dir.
func (m *Manager) ClearCache(dir string) error {
	unlock := m.locks.Lock(dir)
	defer unlock()
	return m.cache.Clear(dir)
}

// GenerateCaches clears every span cache and rebuilds it by resolving all feeds.
func (m *Manager) GenerateCaches(ctx context.Context) ([]*Feed, []FeedError, error) {
	if _, err := m.ClearCaches(); err != nil {
		return nil, nil, err
	}
	return m.LoadFeeds(ctx)
}

// SetURL stores url as the source of the feed called name, prompting when url is empty.
func (m *Manager) SetURL(name, url string) (string, error) {
	dir, err := m.FindFeed(name)
	if err != nil {
		return "", err
	}
	if url == "" {
		if url, err = m.ask("Enter feed URL: ", ErrNoSourceURL); err != nil {
			return "", err
		}
	}
	internal.Logger().Info("setting feed url", "path", dir, "url", url)
	return url, gtfs.WriteFeedURL(dir, url)
}

// SetPostprocess stores cmd as the post-process command of the feed called name.
func (m *Manager) SetPostprocess(name, cmd string) (string, error) {
	dir, err := m.FindFeed(name)
	if err != nil {
		return "", err
	}
	if cmd == "" {
		if cmd, err = m.ask("Enter cmd: ", ErrNoPostprocess); err != nil {
			return "", err
		}
	}
	internal.Logger().Info("storing postprocess command", "feed", name)
	return cmd, gtfs.WritePostprocess(dir, cmd)
}

// ask prompts unless DontBug is set or no Prompter is configured, in which case it returns missing.
func (m *Manager) ask(label string, missing error) (string, error) {
	if m.opts.DontBug || m.deps.Prompter == nil {
		return "", missing
	}
	v, err := m.deps.Prompter.Prompt(label)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", missing
	}
	return v, nil
}

func (m *Manager) record(e history.Event) {
	if m.deps.History == nil {
		return
	}
	if err := m.deps.History.Record(e); err != nil {
		internal.Logger().Warn("could not record history", "feed", e.Feed, "err", err)
	}
}
