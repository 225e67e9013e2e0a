// Package cmd implements the familysearch-crawler CLI.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/familysearch/crawlengine/internal/crawlerr"
)

// Version information (set via ldflags at build time).
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values.
var (
	cfgFile     string
	logLevel    string
	logFormat   string
	maxHops     int
	rps         float64
	pauseFile   string
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "familysearch-crawler",
	Short: "Genealogy relationship-graph crawler",
	Long: `familysearch-crawler walks the FamilySearch parent/child relationship
graph breadth-first from a set of seed person IDs, persisting every
discovered vertex and edge to a local crash-safe database.

Features:
  - Hop-by-hop BFS traversal with crash-restart via a durable frontier
  - Adaptive rate limiting with per-phase concurrency bounds
  - Ambiguous-relationship resolution against an authoritative endpoint
  - Pause/resume via OS signal or control file`,
	Version: Version,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "crawl.yaml",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")
	rootCmd.PersistentFlags().IntVar(&maxHops, "max-hops", 0,
		"Override the hop ceiling")
	rootCmd.PersistentFlags().Float64Var(&rps, "rps", 0,
		"Override requests_per_second")
	rootCmd.PersistentFlags().StringVar(&pauseFile, "pause-file", "",
		"Override the pause/resume/stop control file path")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"Override the metrics JSON-lines sink path")
}

// GetConfigFile returns the config file path.
func GetConfigFile() string { return cfgFile }

// CLIOverrides carries flag values that override config file settings.
type CLIOverrides struct {
	LogLevel    string
	LogFormat   string
	MaxHops     int
	RPS         float64
	PauseFile   string
	MetricsFile string
}

// GetCLIOverrides returns the CLI flag override values.
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		MaxHops:     maxHops,
		RPS:         rps,
		PauseFile:   pauseFile,
		MetricsFile: metricsFile,
	}
}

// exitCodeFor maps a run's terminal error to the exit codes the CLI surface
// promises: 0 on clean completion or a cooperative stop, 2 on auth expiry,
// 3 on a store integrity violation, 1 on anything else.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := crawlerr.KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case crawlerr.KindCancelled:
		return 0
	case crawlerr.KindAuthExpired:
		return 2
	case crawlerr.KindStoreIntegrity:
		return 3
	default:
		return 1
	}
}
