package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BadgerOps/transferwatch/internal/viewmodel"
)

var (
	journalLimit int
	journalPrune bool
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show sync health and recent actions from the local journal",
		Long: `Summarize the local SQLite journal: per-widget poll health recorded by
"transferwatch serve", recent one-off actions and saved reports.`,
		Example: `  transferwatch journal
  transferwatch journal --limit 50
  transferwatch journal --prune`,
		RunE: journalRun,
	}
	cmd.Flags().IntVar(&journalLimit, "limit", 20, "number of actions and reports to show")
	cmd.Flags().BoolVar(&journalPrune, "prune", false, "drop poll attempts older than server.journal_retention first")
	return cmd
}

func journalRun(cmd *cobra.Command, args []string) error {
	if globalStore == nil {
		return fmt.Errorf("journal not initialized")
	}

	if journalPrune {
		cutoff := time.Now().Add(-globalCfg.Server.JournalRetention.Std())
		n, err := globalStore.PruneAttempts(cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d poll attempts\n\n", n)
	}

	health, err := globalStore.SyncHealth()
	if err != nil {
		return err
	}
	actions, err := globalStore.ListActions("", journalLimit)
	if err != nil {
		return err
	}
	reports, err := globalStore.ListReportDownloads(journalLimit)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"sync_health": health,
			"actions":     actions,
			"reports":     reports,
		})
	}

	fmt.Println("Sync Health")
	fmt.Println("===========")
	fmt.Printf("%-12s %8s %8s %8s %-20s %s\n", "Widget", "Attempts", "Failed", "Streak", "Last Success", "Last Error")
	fmt.Println(strings.Repeat("-", 90))
	for _, h := range health {
		fmt.Printf("%-12s %8d %8d %8d %-20s %s\n",
			h.Label, h.Attempts, h.Failures, h.ConsecutiveFailures, formatTime(h.LastSuccess), truncate(h.LastError, 30))
	}
	if len(health) == 0 {
		fmt.Println("No poll attempts recorded")
	}

	fmt.Println("\nRecent Actions")
	fmt.Println("==============")
	for _, a := range actions {
		result := "ok"
		if !a.Succeeded() {
			result = fmt.Sprintf("failed (%d): %s", a.StatusCode, a.ErrorMessage)
		}
		fmt.Printf("%s  %-14s %-10s %s\n", formatTime(a.PerformedAt), a.Action, a.TransferID, result)
	}
	if len(actions) == 0 {
		fmt.Println("No actions recorded")
	}

	fmt.Println("\nSaved Reports")
	fmt.Println("=============")
	for _, r := range reports {
		fmt.Printf("%s  %-10s %10s %s\n", formatTime(r.DownloadedAt), r.TransferID, viewmodel.FormatBytes(r.Size), r.Destination)
	}
	if len(reports) == 0 {
		fmt.Println("No reports saved")
	}
	return nil
}
