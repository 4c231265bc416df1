package cmd

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"marketsync/sync"
)

var (
	reconcileTable   string
	reconcileDate    string
	reconcileEnd     string
	reconcileForce   bool
	reconcileGapFill bool
)

var reconcileCMD = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile stored partitions against the expected universe",
	Long: `Classify each (table, trade date) partition against the instruments
expected to be present, then repair it with the cheapest sufficient strategy:
refetch missing and anomalous instruments, or rebuild the whole partition.
With --gap-fill, only append rows for missing instruments and never delete
anything. With --end the whole trading-date range [date, end] is reconciled
in order.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, cleanup, err := wire()
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := e.client.Authenticate(ctx); err != nil {
			log.Fatalf("Authentication failed: %v", err)
		}
		if err := e.store.EnsureSchema(); err != nil {
			log.Fatalf("Schema initialization failed: %v", err)
		}

		dates := []string{reconcileDate}
		if reconcileEnd != "" {
			dates, err = e.manager.TradingDates(reconcileDate, reconcileEnd)
			if err != nil {
				log.Fatalf("Failed to list trading dates: %v", err)
			}
			if len(dates) == 0 {
				log.Printf("No trading dates in [%s, %s], nothing to do", reconcileDate, reconcileEnd)
				return
			}
		}

		rec := sync.NewReconciler(e.catalog, e.store, e.client, e.redis, e.cfg.Sync)
		var repaired, untouched int
		for _, date := range dates {
			if ctx.Err() != nil {
				log.Fatalf("Reconciliation cancelled after %d dates", repaired+untouched)
			}
			var result *sync.RepairResult
			if reconcileGapFill {
				result, err = rec.GapFill(ctx, reconcileTable, date)
			} else {
				result, err = rec.Reconcile(ctx, reconcileTable, date, reconcileForce)
			}
			if err != nil {
				log.Fatalf("Reconcile %s/%s failed: %v", reconcileTable, date, err)
			}
			if result.Strategy == sync.StrategyNone {
				untouched++
				continue
			}
			repaired++
			log.Printf("Repaired %s/%s: %s, %d rows (%s)",
				result.Table, result.TradeDate, result.Strategy, result.Rows, result.Reason)
		}
		log.Printf("Reconciliation done: %d partitions repaired, %d already convergent", repaired, untouched)
	},
}

func init() {
	reconcileCMD.Flags().StringVar(&reconcileTable, "table", "daily_basic", "time-series table to reconcile")
	reconcileCMD.Flags().StringVar(&reconcileDate, "date", "", "trade date (YYYYMMDD)")
	reconcileCMD.Flags().StringVar(&reconcileEnd, "end", "", "optional range end (YYYYMMDD); reconciles every trading date in [date, end]")
	reconcileCMD.Flags().BoolVar(&reconcileForce, "force", false, "rebuild the partition even when it classifies as convergent")
	reconcileCMD.Flags().BoolVar(&reconcileGapFill, "gap-fill", false, "append missing instruments only, never delete existing rows")
	reconcileCMD.MarkFlagRequired("date")
	reconcileCMD.MarkFlagsMutuallyExclusive("force", "gap-fill")
	rootCMD.AddCommand(reconcileCMD)
}
