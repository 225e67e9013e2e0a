package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue a crawl from its existing database",
	Long: `resume opens an existing crawl database and continues from
whatever frontier, processing set, and hop count it already holds. It
requires the database to already exist and ignores any seed IDs; the
frontier is whatever the last run left behind.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "dry run: would resume crawl from database using config %q\n",
				GetConfigFile())
			return nil
		}
		return runCrawl(cmd.Context(), nil, false)
	},
}

func init() {
	resumeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print what would be run without loading config or crawling")
	rootCmd.AddCommand(resumeCmd)
}
