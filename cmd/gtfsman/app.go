package main

import (
	"fmt"
	"os"

	gtfsman "github.com/theoremus-urban-solutions/gtfs-manager"
	"github.com/theoremus-urban-solutions/gtfs-manager/config"
	"github.com/theoremus-urban-solutions/gtfs-manager/history"
	"github.com/theoremus-urban-solutions/gtfs-manager/internal"
	"github.com/theoremus-urban-solutions/gtfs-manager/remote"
)

// app bundles what a command needs for one invocation.
type app struct {
	cfg     config.AppConfig
	manager *gtfsman.Manager
	history *history.Store // nil when disabled or unavailable
}

func newApp(checkRemote bool) (*app, error) {
	cfg, err := config.Load(flagConfig, flagBaseFolder)
	if err != nil {
		return nil, err
	}
	internal.InitLogging(os.Stderr, flagVerbose)
	logger := internal.Logger()
	logger.Debug("configuration loaded", "baseFolder", cfg.BaseFolder, "maxDepth", cfg.MaxDepth)

	client := remote.NewClient(remote.Options{
		ProbeTimeout:    cfg.ProbeTimeout(),
		DownloadTimeout: cfg.DownloadTimeout(),
		RatePerSecond:   cfg.Probe.RatePerSecond,
	})

	a := &app{cfg: cfg}
	deps := gtfsman.Deps{
		Prober:     client,
		Downloader: newFetcher(client),
		Prompter:   gtfsman.NewLinePrompter(os.Stdin, os.Stderr),
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("history disabled", "path", cfg.History.Path, "err", err)
		} else {
			a.history = store
			deps.History = store
		}
	}

	a.manager, err = gtfsman.NewManager(gtfsman.Options{
		BaseFolder:  cfg.BaseFolder,
		MaxDepth:    cfg.MaxDepth,
		CheckRemote: checkRemote,
		DontBug:     flagDontBug,
		Concurrency: cfg.Update.Concurrency,
	}, deps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating manager: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			internal.Logger().Warn("closing history", "err", err)
		}
	}
}

// lastUpdate returns the latest successful update of feed, or nil.
func (a *app) lastUpdate(feed string) *history.Event {
	if a.history == nil {
		return nil
	}
	e, ok, err := a.history.LastSuccess(feed, history.KindUpdate)
	if err != nil {
		internal.Logger().Warn("reading history", "feed", feed, "err", err)
		return nil
	}
	if !ok {
		if e, ok, err = a.history.LastSuccess(feed, history.KindInit); err != nil || !ok {
			return nil
		}
	}
	return &e
}
