package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var statusCMD = &cobra.Command{
	Use:   "status",
	Short: "Show the ingestion outcome ledger",
	Long:  `Print the recorded outcome of every (batch, dataset) pair from the last runs that touched it.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, cleanup, err := wire()
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer cleanup()

		outcomes, err := e.manager.Outcomes()
		if err != nil {
			log.Fatalf("Failed to read ledger: %v", err)
		}
		if len(outcomes) == 0 {
			fmt.Println("No recorded outcomes. Run 'marketsync load' first.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BATCH\tDATASET\tSTATUS\tROWS\tSTARTED\tFINISHED\tERROR")
		for _, o := range outcomes {
			finished := "-"
			if o.EndTime != nil {
				finished = o.EndTime.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				o.BatchName, o.Dataset, o.Status, o.RowCount,
				o.StartTime.Format("2006-01-02 15:04:05"), finished, o.ErrorMsg)
		}
		w.Flush()
	},
}

func init() {
	rootCMD.AddCommand(statusCMD)
}
