package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/safety"
	"github.com/BadgerOps/transferwatch/internal/store"
	"github.com/BadgerOps/transferwatch/internal/viewmodel"
)

var (
	listStatus string
	listLimit  int
	listOffset int

	createSource     string
	createDest       string
	createWatch      bool
	createSettle     int
	createContinuous bool
	createMode       string

	historyDays int

	watchHistLimit  int
	watchHistOffset int

	reportOut string
)

func newTransfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transfers",
		Aliases: []string{"transfer", "t"},
		Short:   "Inspect and manage transfer jobs",
		Long: `List, inspect, create and control transfer jobs on the Automation Node.
Every mutating command is recorded in the local journal.`,
		Example: `  transferwatch transfers list
  transferwatch transfers get 42
  transferwatch transfers cancel 42
  transferwatch transfers report 42 --out ./reports`,
	}

	cmd.AddCommand(
		newTransfersListCmd(),
		newTransfersGetCmd(),
		newTransfersCreateCmd(),
		newTransferActionCmd("cancel", "Cancel an active transfer", "cancel", func(ctx context.Context, id string) error {
			_, err := globalClient.CancelTransfer(ctx, id)
			return err
		}),
		newTransferActionCmd("delete", "Delete a transfer from history (files are not touched)", "delete", func(ctx context.Context, id string) error {
			return globalClient.DeleteTransfer(ctx, id)
		}),
		newTransferActionCmd("pause", "Pause watch mode on a transfer", "pause_watch", func(ctx context.Context, id string) error {
			_, err := globalClient.PauseWatch(ctx, id)
			return err
		}),
		newTransferActionCmd("resume", "Resume watch mode on a transfer", "resume_watch", func(ctx context.Context, id string) error {
			_, err := globalClient.ResumeWatch(ctx, id)
			return err
		}),
		newTransfersHistoryCmd(),
		newTransfersWatchHistoryCmd(),
		newTransfersReportCmd(),
	)

	return cmd
}

func newTransfersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transfers split into active and history views",
		RunE:  transfersListRun,
	}
	cmd.Flags().StringVar(&listStatus, "status", "", "filter by status (pending, validating, copying, verifying, completed, failed, cancelled)")
	cmd.Flags().IntVar(&listLimit, "limit", gateway.DefaultListLimit, "maximum number of transfers")
	cmd.Flags().IntVar(&listOffset, "offset", 0, "number of transfers to skip")
	return cmd
}

func transfersListRun(cmd *cobra.Command, args []string) error {
	list, err := globalClient.ListTransfers(cmd.Context(), gateway.ListOptions{
		Status: listStatus,
		Limit:  listLimit,
		Offset: listOffset,
	})
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return printJSON(list)
	}
	printTransferList(list)
	return nil
}

func newTransfersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a transfer with its checksums and audit trail",
		Args:  cobra.ExactArgs(1),
		RunE:  transfersGetRun,
	}
}

func transfersGetRun(cmd *cobra.Command, args []string) error {
	d, err := globalClient.GetTransferDetail(cmd.Context(), args[0])
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return printJSON(d)
	}

	c := viewmodel.Card(d.Job)
	fmt.Printf("Transfer %s: %s\n", c.ID, c.Title)
	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("%-14s %s\n", "Status:", c.Badge)
	fmt.Printf("%-14s %s\n", "Source:", c.Source)
	fmt.Printf("%-14s %s\n", "Destination:", c.Destination)
	fmt.Printf("%-14s %s\n", "Size:", c.Size)
	fmt.Printf("%-14s %d%%\n", "Progress:", c.Progress)
	if c.FileCount != nil {
		fmt.Printf("%-14s %d\n", "Files:", *c.FileCount)
	}
	if c.Watch {
		fmt.Printf("%-14s %s\n", "Watch:", watchLabel(c))
	}
	if c.Error != "" {
		fmt.Printf("%-14s %s\n", "Error:", c.Error)
	}

	fmt.Println("\nChecksums")
	for _, s := range d.Checksums.Items {
		fmt.Printf("  %-12s %s (%s)\n", s.Type, s.Value, viewmodel.FormatSeconds(int64(s.DurationSeconds)))
	}

	fmt.Println("\nAudit trail")
	for _, l := range viewmodel.LogLines(d.Logs.Items) {
		fmt.Printf("  %s  %-24s %s\n", formatTime(l.Timestamp), l.Event, l.Message)
	}

	if d.Watch != nil {
		fmt.Printf("\nWatch history: %d detected, %d completed, %d failed\n",
			d.Watch.TotalDetected, d.Watch.TotalCompleted, d.Watch.TotalFailed)
	}
	return nil
}

func watchLabel(c viewmodel.JobCard) string {
	if c.WatchDuration == "" {
		return "enabled"
	}
	if c.WatchAnomaly {
		return "triggered after " + c.WatchDuration + " (clock skew)"
	}
	return "triggered after " + c.WatchDuration
}

func newTransfersCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new transfer",
		Example: `  transferwatch transfers create --source /data/in/a.mov --dest /data/out
  transferwatch transfers create --source /data/in --dest /data/out --watch --continuous --mode move`,
		RunE: transfersCreateRun,
	}
	cmd.Flags().StringVar(&createSource, "source", "", "source path on the node")
	cmd.Flags().StringVar(&createDest, "dest", "", "destination path on the node")
	cmd.Flags().BoolVar(&createWatch, "watch", false, "wait for the source to settle before copying")
	cmd.Flags().IntVar(&createSettle, "settle", 30, "settle time in seconds for watch mode")
	cmd.Flags().BoolVar(&createContinuous, "continuous", false, "keep watching after the first transfer")
	cmd.Flags().StringVar(&createMode, "mode", "copy", "operation mode (copy or move)")
	return cmd
}

func transfersCreateRun(cmd *cobra.Command, args []string) error {
	job, err := globalClient.CreateTransfer(cmd.Context(), gateway.CreateTransferRequest{
		SourcePath:        createSource,
		DestinationPath:   createDest,
		WatchModeEnabled:  createWatch,
		SettleTimeSeconds: createSettle,
		WatchContinuous:   createContinuous,
		OperationMode:     createMode,
	})
	recordAction("create", job.ID, err)
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return printJSON(viewmodel.Card(job))
	}
	fmt.Printf("Created transfer %s (%s)\n", job.ID, viewmodel.StatusLabel(job))
	return nil
}

func newTransferActionCmd(use, short, action string, call func(ctx context.Context, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			err := call(cmd.Context(), id)
			recordAction(action, id, err)
			if err != nil {
				return describeError(err)
			}
			fmt.Printf("%s: transfer %s\n", action, id)
			return nil
		},
	}
}

func newTransfersHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show transfers from the last N days as an audit feed",
		RunE:  transfersHistoryRun,
	}
	cmd.Flags().IntVar(&historyDays, "days", gateway.DefaultHistoryDays, "number of days to look back")
	return cmd
}

func transfersHistoryRun(cmd *cobra.Command, args []string) error {
	list, err := globalClient.RecentTransfers(cmd.Context(), historyDays)
	if err != nil {
		return describeError(err)
	}
	feed := viewmodel.AuditFeed(list.Items, globalCfg.Alerts.AuditLimit)
	if jsonOut {
		return printJSON(feed)
	}
	if len(feed) == 0 {
		fmt.Println("No transfers in range")
		return nil
	}
	for _, e := range feed {
		fmt.Printf("%s  %-12s %s\n", formatTime(e.Timestamp), e.Status, e.Detail)
	}
	return nil
}

func newTransfersWatchHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch-history ID",
		Short: "List the files a watch-mode transfer has detected",
		Args:  cobra.ExactArgs(1),
		RunE:  transfersWatchHistoryRun,
	}
	cmd.Flags().IntVar(&watchHistLimit, "limit", gateway.DefaultWatchHistory, "maximum number of files")
	cmd.Flags().IntVar(&watchHistOffset, "offset", 0, "number of files to skip")
	return cmd
}

func transfersWatchHistoryRun(cmd *cobra.Command, args []string) error {
	hist, err := globalClient.WatchHistory(cmd.Context(), args[0], watchHistLimit, watchHistOffset)
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return printJSON(hist)
	}
	fmt.Printf("Detected %d, completed %d, failed %d\n\n", hist.TotalDetected, hist.TotalCompleted, hist.TotalFailed)
	for _, f := range hist.Files {
		match := "-"
		if f.ChecksumMatch {
			match = "match"
		}
		fmt.Printf("  %s  %-12s %-32s %10s %s\n", formatTime(f.DetectedAt), strings.ToUpper(string(f.Status)),
			truncate(f.FileName, 32), viewmodel.FormatBytes(f.FileSize), match)
	}
	return nil
}

func newTransfersReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report ID",
		Short: "Download the PDF report of a transfer",
		Args:  cobra.ExactArgs(1),
		RunE:  transfersReportRun,
	}
	cmd.Flags().StringVar(&reportOut, "out", "", "directory to save the report in (defaults to reports.output_dir)")
	return cmd
}

func transfersReportRun(cmd *cobra.Command, args []string) error {
	id := args[0]
	report, err := globalClient.DownloadReport(cmd.Context(), id)
	if err != nil {
		return describeError(err)
	}

	dir := reportOut
	if dir == "" {
		dir = globalCfg.Reports.OutputDir
	}
	path, err := saveReport(dir, report)
	if err != nil {
		return err
	}

	if globalStore != nil {
		rec := &store.ReportDownload{TransferID: id, Filename: report.Filename, Size: report.Size(), Destination: path}
		if err := globalStore.RecordReportDownload(rec); err != nil {
			logger.Warn("failed to journal report download", "transfer_id", id, "error", err)
		}
	}

	fmt.Printf("Saved %s (%s)\n", path, viewmodel.FormatBytes(report.Size()))
	return nil
}

// saveReport writes report under dir using its sanitized filename.
func saveReport(dir string, report *gateway.Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	path, err := safety.SafeJoinUnder(dir, report.Filename)
	if err != nil {
		return "", fmt.Errorf("unsafe report filename: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to set report permissions: %w", err)
	}
	if _, err := report.WriteTo(tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}
	return path, nil
}
