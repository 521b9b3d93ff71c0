package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	gtfsman "github.com/theoremus-urban-solutions/gtfs-manager"
	"github.com/theoremus-urban-solutions/gtfs-manager/history"
	"github.com/theoremus-urban-solutions/gtfs-manager/internal"
	"github.com/theoremus-urban-solutions/gtfs-manager/utils"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"status"},
	Short:   "List all feeds with their validity",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(flagCheckRemote)
	if err != nil {
		return err
	}
	defer a.Close()

	feeds, _, err := a.manager.LoadFeeds(cmd.Context())
	if err != nil {
		return err
	}
	filter := gtfsman.ListAll
	switch {
	case flagActive:
		filter = gtfsman.ListActive
	case flagNotActive:
		filter = gtfsman.ListNotActive
	}
	return gtfsman.RenderList(cmd.OutOrStdout(), feeds, a.manager.Now(), filter)
}

var showCmd = &cobra.Command{
	Use:   "show <feed>",
	Short: "Show details of one feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagCheckRemote)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.manager.FeedByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return gtfsman.RenderFeed(cmd.OutOrStdout(), f, a.manager.Now(), a.lastUpdate(f.Name))
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <feed>",
	Short: "Download the latest copy of one feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.manager.FeedByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if _, err := a.manager.Update(cmd.Context(), f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", f.Name)
		return nil
	},
}

var updateAllCmd = &cobra.Command{
	Use:   "update-all",
	Short: "Update every expired feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := gtfsman.ParseForceLevel(flagForce)
		if err != nil {
			return err
		}
		return runUpdateAll(cmd, level)
	},
}

func newForcedUpdateAllCmd(use string, level gtfsman.ForceLevel) *cobra.Command {
	short := "Update every feed expiring within a week"
	if level == gtfsman.ForceAlways {
		short = "Update every feed"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdateAll(cmd, level)
		},
	}
}

func runUpdateAll(cmd *cobra.Command, level gtfsman.ForceLevel) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.manager.UpdateAll(cmd.Context(), level)
	if err != nil {
		return err
	}
	var updated, failed, skipped int
	out := cmd.OutOrStdout()
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Err != nil:
			failed++
			fmt.Fprintf(out, "FAILED  %s: %v\n", r.Name, r.Err)
		default:
			updated++
			fmt.Fprintf(out, "updated %s (%s - %s)\n", r.Name,
				utils.DisplayDate(r.Feed.ValidFrom), utils.DisplayDate(r.Feed.ValidTo))
		}
	}
	fmt.Fprintf(out, "%d updated, %d failed, %d skipped\n", updated, failed, skipped)
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d feed(s) failed to update", failed)
	}
	return nil
}

var setURLCmd = &cobra.Command{
	Use:   "set-url <feed> [url]",
	Short: "Store the source URL of a feed",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		url := optionalArg(args, 1)
		if seed, ok := a.cfg.SelectFeed(args[0]); ok && url == "" {
			url = seed.URL
		}
		if _, err := a.manager.SetURL(args[0], url); err != nil {
			return err
		}
		return nil
	},
}

var setPPCmd = &cobra.Command{
	Use:   "set-pp <feed> [cmd]",
	Short: "Store the post-process command of a feed",
	Long:  "Store a shell command that runs after every download of the feed. " + gtfsman.FeedPathPlaceholder + " is replaced with the feed directory.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.manager.SetPostprocess(args[0], optionalArg(args, 1))
		return err
	},
}

var clearCacheCmd = &cobra.Command{
	Use:     "clear-cache",
	Aliases: []string{"cc"},
	Short:   "Remove the span cache of every feed",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.manager.ClearCaches()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache of %d feeds\n", n)
		return nil
	},
}

var generateCacheCmd = &cobra.Command{
	Use:   "generate-cache",
	Short: "Rebuild the span cache of every feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		feeds, feedErrs, err := a.manager.GenerateCaches(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated cache for %d feeds\n", len(feeds))
		if len(feedErrs) > 0 {
			return fmt.Errorf("%d feed(s) could not be resolved", len(feedErrs))
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init <feed> [url]",
	Short: "Create a feed folder and download it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		url := optionalArg(args, 1)
		var postprocess string
		if seed, ok := a.cfg.SelectFeed(args[0]); ok {
			if url == "" {
				url = seed.URL
			}
			postprocess = seed.Postprocess
		}
		f, err := a.manager.Init(cmd.Context(), args[0], url, postprocess)
		if err != nil {
			return err
		}
		return gtfsman.RenderFeed(cmd.OutOrStdout(), f, a.manager.Now(), nil)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [feed]",
	Short: "Show recorded updates and remote checks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.history == nil {
			return errors.New("history is disabled")
		}
		events, err := a.history.Events(history.QueryOpts{Feed: optionalArg(args, 0)})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			internal.Logger().Info("no history recorded")
			return nil
		}
		return gtfsman.RenderHistory(cmd.OutOrStdout(), events)
	},
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
