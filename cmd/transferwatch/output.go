package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/model"
	"github.com/BadgerOps/transferwatch/internal/viewmodel"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// recordAction journals a one-off action when the journal is open.
func recordAction(action, transferID string, err error) {
	if globalStore == nil {
		return
	}
	if _, jerr := globalStore.RecordAction(action, transferID, err); jerr != nil {
		logger.Warn("failed to journal action", "action", action, "error", jerr)
	}
}

// describeError turns a gateway failure into the line shown to the user.
func describeError(err error) error {
	if gateway.IsNetwork(err) {
		return fmt.Errorf("automation node unreachable: %w", err)
	}
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printCards(title string, jobs []model.TransferJob) {
	fmt.Printf("%s (%d)\n", title, len(jobs))
	if len(jobs) == 0 {
		fmt.Println("  none")
		fmt.Println("")
		return
	}
	fmt.Printf("  %-8s %-12s %-32s %10s %6s\n", "ID", "Status", "File", "Size", "Prog")
	fmt.Println("  " + strings.Repeat("-", 72))
	for _, c := range viewmodel.Cards(jobs) {
		fmt.Printf("  %-8s %-12s %-32s %10s %5d%%\n", c.ID, c.Badge, truncate(c.Title, 32), c.Size, c.Progress)
	}
	fmt.Println("")
}

func printTransferList(list model.TransferList) {
	active, historical, unknown := viewmodel.Partition(list.Items)
	fmt.Printf("Transfers: %d total\n\n", list.Total)
	printCards("Active", active)
	printCards("History", historical)
	if len(unknown) > 0 {
		printCards("Unrecognized status", unknown)
	}
}

func printAlerts(alerts []viewmodel.Alert) {
	fmt.Println("Alerts")
	fmt.Println("======")
	if len(alerts) == 0 {
		fmt.Println("No recent alerts")
		return
	}
	for _, a := range alerts {
		fmt.Printf("[%-8s] %s  %s\n", strings.ToUpper(string(a.Tone)), formatTime(a.Timestamp), a.Title)
		fmt.Printf("           %s\n", a.Detail)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
