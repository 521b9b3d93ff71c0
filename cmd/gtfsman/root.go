package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagBaseFolder string
	flagConfig     string
	flagDontBug    bool
	flagVerbose    bool

	flagActive      bool
	flagNotActive   bool
	flagCheckRemote bool
	flagForce       string
)

var rootCmd = &cobra.Command{
	Use:          "gtfsman",
	Short:        "Manage a folder of GTFS feeds",
	Long:         "gtfsman finds GTFS feeds below a base folder, reports how long their timetables are valid and keeps them up to date from their source URLs.",
	SilenceUsage: true,
	RunE:         runList,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBaseFolder, "base-folder", "", "folder to search for feeds (default: config, $GTFSMAN_BASE_FOLDER or cwd)")
	pf.StringVar(&flagConfig, "config", "", "path to config file")
	pf.BoolVar(&flagDontBug, "dontbug", false, "never prompt for missing values")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	addListFlags(rootCmd)
	addListFlags(listCmd)
	addCheckRemoteFlag(showCmd)
	updateAllCmd.Flags().StringVar(&flagForce, "force", "0", "force level: 0 expired only, 1 also expiring within a week, 2 all feeds")

	rootCmd.AddCommand(
		listCmd,
		showCmd,
		updateCmd,
		updateAllCmd,
		newForcedUpdateAllCmd("update-All", 1),
		newForcedUpdateAllCmd("update-ALL", 2),
		setURLCmd,
		setPPCmd,
		clearCacheCmd,
		generateCacheCmd,
		initCmd,
		historyCmd,
		versionCmd,
	)
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&flagActive, "active", "a", false, "only list feeds that have not expired")
	cmd.Flags().BoolVarP(&flagNotActive, "notactive", "n", false, "only list expired feeds")
	addCheckRemoteFlag(cmd)
	cmd.MarkFlagsMutuallyExclusive("active", "notactive")
}

func addCheckRemoteFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagCheckRemote, "checkremotedate", false, "check the source URL for a newer copy")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gtfsman %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
