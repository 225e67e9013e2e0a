package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run [seed-pids...]",
	Short: "Start a fresh crawl from one or more seed person IDs",
	Long: `run creates a new crawl database (or reuses an empty one at the
configured path) and seeds its frontier with the given person IDs before
driving the crawl to completion.

Re-running against an existing non-empty database behaves the same as
resume: seed IDs are accepted only on a fresh frontier, per the database's
seed-once invariant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("run requires at least one seed person ID")
		}
		if dryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "dry run: would seed frontier with %d PID(s) and crawl up to %d hops using config %q\n",
				len(args), maxHops, GetConfigFile())
			return nil
		}
		return runCrawl(cmd.Context(), args, true)
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would be run without loading config or crawling")
	rootCmd.AddCommand(runCmd)
}
