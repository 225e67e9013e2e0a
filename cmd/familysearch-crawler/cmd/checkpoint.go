package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/familysearch/crawlengine/internal/config"
	"github.com/familysearch/crawlengine/internal/logger"
	"github.com/familysearch/crawlengine/internal/store"
)

var checkpointStatus bool

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Report a crawl database's current status without running it",
	Long: `checkpoint opens the configured database (it must already exist; it
is opened read-write and any schema migrations are applied, it is not
opened read-only) and reports the frontier depth, processing depth,
vertex/edge counts, and last completed hop, without starting or
continuing a crawl.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		log := logger.NewDefault()
		st, err := store.Open(cmd.Context(), cfg.Store.OutDir, cfg.Store.Basename, false, log)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		status, err := st.GetStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}

		running, err := st.IsJobRunning(cmd.Context(), cfg.Store.Basename)
		if err != nil {
			return fmt.Errorf("checking job lock: %w", err)
		}

		if checkpointStatus {
			payload := map[string]any{
				"frontier_depth":   status.FrontierDepth,
				"processing_depth": status.ProcessingDepth,
				"vertex_count":     status.VertexCount,
				"edge_count":       status.EdgeCount,
				"last_iteration":   status.LastIteration,
				"run_status":       status.RunStatus,
				"updated_at":       status.UpdatedAt,
				"running":          running,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "database:         %s\n", cfg.Store.Path())
		fmt.Fprintf(cmd.OutOrStdout(), "run status:       %s\n", status.RunStatus)
		fmt.Fprintf(cmd.OutOrStdout(), "currently running: %t\n", running)
		fmt.Fprintf(cmd.OutOrStdout(), "last iteration:   %d\n", status.LastIteration)
		fmt.Fprintf(cmd.OutOrStdout(), "frontier depth:   %d\n", status.FrontierDepth)
		fmt.Fprintf(cmd.OutOrStdout(), "processing depth: %d\n", status.ProcessingDepth)
		fmt.Fprintf(cmd.OutOrStdout(), "vertex count:     %d\n", status.VertexCount)
		fmt.Fprintf(cmd.OutOrStdout(), "edge count:       %d\n", status.EdgeCount)
		return nil
	},
}

func init() {
	checkpointCmd.Flags().BoolVar(&checkpointStatus, "status", false, "Print status as JSON instead of a human-readable report")
	rootCmd.AddCommand(checkpointCmd)
}
