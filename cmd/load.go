package cmd

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"marketsync/sync"
)

var loadBatches []string

var loadCMD = &cobra.Command{
	Use:   "load",
	Short: "Run the batched initial data load",
	Long: `Authenticate to the provider, ensure the database schema, then
ingest every catalog batch in order. Use --batch to restrict the run to
specific batches.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, cleanup, err := wire()
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orch := sync.NewOrchestrator(e.catalog, e.store, e.client, sync.LogReporter{}, e.cfg.Sync)
		summary, err := orch.Run(ctx, loadBatches)

		// The instrument reference table may have been reloaded; cached
		// per-date universes are stale either way
		if cerr := e.redis.InvalidateUniverse(context.Background()); cerr != nil {
			log.Printf("Failed to invalidate universe cache: %v", cerr)
		}

		if err != nil {
			log.Fatalf("Load failed (run %s): %v", summary.RunID, err)
		}
		log.Printf("Load finished (run %s): %s", summary.RunID, summary.Message)
	},
}

func init() {
	loadCMD.Flags().StringSliceVar(&loadBatches, "batch", nil, "restrict the run to these batches (default: all)")
	rootCMD.AddCommand(loadCMD)
}
