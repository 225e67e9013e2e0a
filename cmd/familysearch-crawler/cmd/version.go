package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "version prints the familysearch-crawler build version, commit, and runtime platform.",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "familysearch-crawler version %s\n", Version)
	fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", Commit)
	fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
	fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
