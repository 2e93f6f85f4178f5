package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/datagate/adapters/sqlite"
	"github.com/artpar/datagate/config"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect recorded call activity",
	Long: `Inspect the call audit store.

Requires recorder mode "sqlite"; the in-memory recorder does not
survive the serving process.

Examples:
  datagate calls recent --resource=inventory:item --limit=20
  datagate calls summary --resource=inventory:item
  datagate calls summary --resource=inventory:item --days=30`,
}

var callsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent calls",
	RunE:  runCallsRecent,
}

var callsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show aggregated call activity",
	RunE:  runCallsSummary,
}

var (
	callsResource string
	callsLimit    int
	callsDays     int
)

func init() {
	rootCmd.AddCommand(callsCmd)

	callsCmd.AddCommand(callsRecentCmd)
	callsCmd.AddCommand(callsSummaryCmd)

	callsRecentCmd.Flags().StringVar(&callsResource, "resource", "", "resource id (domain:name), empty for all")
	callsRecentCmd.Flags().IntVar(&callsLimit, "limit", 20, "number of calls to show")

	callsSummaryCmd.Flags().StringVar(&callsResource, "resource", "", "resource id (domain:name)")
	callsSummaryCmd.Flags().IntVar(&callsDays, "days", 1, "period length in days, ending now")
}

func openCallStore() (*sqlite.CallStore, *sqlite.DB, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Recorder.Mode != "sqlite" {
		return nil, nil, fmt.Errorf("recorder.mode is %q; call inspection needs sqlite", cfg.Recorder.Mode)
	}

	db, err := sqlite.Open(cfg.Recorder.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return sqlite.NewCallStore(db), db, nil
}

func runCallsRecent(cmd *cobra.Command, args []string) error {
	store, db, err := openCallStore()
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := store.GetRecent(context.Background(), callsResource, callsLimit)
	if err != nil {
		return fmt.Errorf("failed to get recent calls: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No recorded calls found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tRESOURCE\tOPERATION\tCODE\tATTEMPTS\tSTATUS\tLATENCY")
	fmt.Fprintln(w, "---------\t--------\t---------\t----\t--------\t------\t-------")

	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%d ms\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Resource,
			e.Operation,
			e.HTTPCode,
			e.Attempts,
			e.Status,
			e.LatencyMs,
		)
	}

	w.Flush()
	return nil
}

func runCallsSummary(cmd *cobra.Command, args []string) error {
	if callsResource == "" {
		return fmt.Errorf("--resource is required")
	}

	store, db, err := openCallStore()
	if err != nil {
		return err
	}
	defer db.Close()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -callsDays)

	summary, err := store.GetSummary(context.Background(), callsResource, start, end)
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}

	fmt.Printf("Call Summary for %s\n", callsResource)
	fmt.Printf("Period: %s to %s\n\n", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
	fmt.Printf("Calls:       %d\n", summary.CallCount)
	fmt.Printf("Errors:      %d\n", summary.ErrorCount)
	fmt.Printf("No Content:  %d\n", summary.NoContentCount)
	fmt.Printf("Retried:     %d\n", summary.RetriedCount)
	fmt.Printf("Attempts:    %d\n", summary.TotalAttempts)
	fmt.Printf("Avg Latency: %d ms\n", summary.AvgLatencyMs)

	return nil
}
