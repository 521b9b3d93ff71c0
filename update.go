package gtfsman

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/gtfs-manager/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-manager/history"
	"github.com/theoremus-urban-solutions/gtfs-manager/internal"
	"github.com/theoremus-urban-solutions/gtfs-manager/utils"
)

// UpdateResult is the outcome of one feed in a batch update.
type UpdateResult struct {
	Name    string
	Path    string
	Feed    *Feed // the re-resolved feed after a successful update
	Err     error
	Skipped bool // not attempted because the batch was cancelled
}

// Update downloads the feed's archive, unpacks it, runs its post-process command, clears
// its span cache and resolves it again. A missing URL is prompted for unless DontBug is set.
func (m *Manager) Update(ctx context.Context, f *Feed) (*Feed, error) {
	internal.Logger().Info("trying to update", "feed", f.Name)
	if f.SourceURL == "" {
		url, err := m.ask(fmt.Sprintf("Enter feed URL for %q: ", f.Name), ErrNoSourceURL)
		if err != nil {
			m.recordUpdate(history.KindUpdate, f.Name, nil, err)
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		if err := gtfs.WriteFeedURL(f.FullPath, url); err != nil {
			return nil, err
		}
		f.SourceURL = url
	}

	updated, err := m.refresh(ctx, f.FullPath, f.SourceURL)
	m.recordUpdate(history.KindUpdate, f.Name, updated, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	internal.Logger().Info("updated", "feed", updated.Name, "from", utils.FormatServiceDate(updated.ValidFrom), "to", utils.FormatServiceDate(updated.ValidTo))
	return updated, nil
}

// UpdateAll updates every feed UpdateDue selects for level.
//
// Feeds run in parallel up to Options.Concurrency. One feed failing never stops the others.
// Once ctx is cancelled no new feed is started; feeds already running finish and the rest
// are reported as Skipped.
func (m *Manager) UpdateAll(ctx context.Context, level ForceLevel) ([]UpdateResult, error) {
	feeds, feedErrs, err := m.LoadFeeds(ctx)
	if err != nil {
		return nil, err
	}
	now := m.opts.Now()

	var due []*Feed
	for _, f := range feeds {
		if UpdateDue(f.ValidTo, now, level) {
			due = append(due, f)
		}
	}
	internal.Logger().Info("feeds due for update", "due", len(due), "total", len(feeds), "force", level)

	results := make([]UpdateResult, len(due), len(due)+len(feedErrs))
	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)
	for i, f := range due {
		results[i] = UpdateResult{Name: f.Name, Path: f.FullPath}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].Skipped = true
				results[i].Err = ctx.Err()
				return nil
			}
			// a started feed runs to completion; client timeouts still bound it
			results[i].Feed, results[i].Err = m.Update(context.WithoutCancel(ctx), f)
			return nil // errors are reported per feed
		})
	}
	_ = g.Wait()

	for _, fe := range feedErrs {
		results = append(results, UpdateResult{Name: m.nameOf(fe.Path), Path: fe.Path, Err: fe})
	}
	return results, nil
}

// Init creates the feed directory name below the base folder and fills it from url.
// A non-empty postprocess command is stored before the first download so it runs on it.
func (m *Manager) Init(ctx context.Context, name, url, postprocess string) (*Feed, error) {
	dir := filepath.Join(m.opts.BaseFolder, filepath.FromSlash(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	name = m.nameOf(dir)
	if postprocess != "" {
		if err := gtfs.WritePostprocess(dir, postprocess); err != nil {
			return nil, err
		}
	}
	if url == "" {
		var err error
		if url, err = m.ask(fmt.Sprintf("Enter feed URL for new feed %q: ", name), ErrNoSourceURL); err != nil {
			return nil, err
		}
	}

	f, err := m.refresh(ctx, dir, url)
	if err == nil {
		if werr := gtfs.WriteFeedURL(dir, url); werr != nil {
			err = werr
		} else {
			f.SourceURL = url
		}
	}
	m.recordUpdate(history.KindInit, name, f, err)
	if err != nil {
		return nil, fmt.Errorf("initialization of %s failed: %w", name, err)
	}
	return f, nil
}

// refresh replaces the tables in dir with the archive at url and resolves the result.
func (m *Manager) refresh(ctx context.Context, dir, url string) (*Feed, error) {
	if m.deps.Downloader == nil {
		return nil, errors.New("no downloader configured")
	}
	if err := m.replaceTables(ctx, dir, url); err != nil {
		return nil, err
	}
	return m.Resolve(ctx, dir)
}

func (m *Manager) replaceTables(ctx context.Context, dir, url string) error {
	unlock := m.locks.Lock(dir)
	defer unlock()

	zipPath, err := m.deps.Downloader.Download(ctx, url, dir, gtfs.ArchiveName)
	if err != nil {
		return fmt.Errorf("could not fetch %s: %w", url, err)
	}

	// the old span is stale as soon as any table changes, even if extraction or
	// post-processing fails
	if err := m.cache.Clear(dir); err != nil {
		return err
	}
	tables, err := gtfs.ExtractArchive(zipPath, dir)
	if err != nil {
		return err
	}
	internal.Logger().Debug("extracted archive", "path", dir, "tables", tables)

	cmd, err := gtfs.ReadPostprocess(dir)
	if err != nil {
		return err
	}
	if cmd != "" {
		if err := m.deps.Postprocess(ctx, cmd, dir); err != nil {
			return fmt.Errorf("error while executing postprocess cmd: %w", err)
		}
		// post-processing may rewrite the calendars
		if err := m.cache.Clear(dir); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) recordUpdate(kind, name string, f *Feed, err error) {
	e := history.Event{Feed: name, Kind: kind, OK: err == nil}
	if f != nil {
		e.ValidFrom = utils.FormatServiceDate(f.ValidFrom)
		e.ValidTo = utils.FormatServiceDate(f.ValidTo)
		e.Detail = f.SourceURL
	}
	if err != nil {
		e.Detail = err.Error()
	}
	m.record(e)
}
