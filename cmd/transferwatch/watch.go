package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/model"
	"github.com/BadgerOps/transferwatch/internal/poller"
	"github.com/BadgerOps/transferwatch/internal/viewmodel"
)

var (
	watchInterval time.Duration
	watchFallback time.Duration
	watchStatus   string
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the transfer list in the terminal",
		Long: `Poll the transfer list and reprint the active and history views plus
the alert feed after every successful fetch. While the node is failing the
last good view is kept and the loop slows to the fallback cadence.`,
		Example: `  transferwatch watch
  transferwatch watch --interval 2s --fallback 10s
  transferwatch watch --status copying`,
		RunE: watchRun,
	}

	cmd.Flags().DurationVar(&watchInterval, "interval", 0, "success cadence (defaults to polling.transfers.interval)")
	cmd.Flags().DurationVar(&watchFallback, "fallback", 0, "failure cadence (defaults to polling.transfers.fallback_interval)")
	cmd.Flags().StringVar(&watchStatus, "status", "", "only show jobs with this status (pending, validating, copying, verifying, completed, failed, cancelled)")

	return cmd
}

func watchRun(cmd *cobra.Command, args []string) error {
	if globalClient == nil {
		return fmt.Errorf("gateway client not initialized")
	}

	interval := watchInterval
	if interval <= 0 {
		interval = globalCfg.Polling.Transfers.Interval.Std()
	}
	fallback := watchFallback
	if fallback <= 0 {
		fallback = globalCfg.Polling.Transfers.FallbackInterval.Std()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limit := globalCfg.Alerts.Limit
	sub := poller.Start(ctx, poller.Config[model.TransferList]{
		Label: "watch",
		Fetcher: func(ctx context.Context) (model.TransferList, error) {
			return globalClient.ListTransfers(ctx, gateway.ListOptions{Status: watchStatus})
		},
		OnSuccess: func(list model.TransferList) {
			if jsonOut {
				_ = printJSON(list)
				return
			}
			fmt.Printf("\n=== %s  [ok]\n\n", time.Now().Format("15:04:05"))
			printTransferList(list)
			printAlerts(viewmodel.Alerts(list.Items, limit))
		},
		OnError: func(err error) {
			fmt.Printf("\n=== %s  [offline] %v (retrying in %s)\n", time.Now().Format("15:04:05"), describeError(err), fallback)
		},
		Interval:         interval,
		FallbackInterval: fallback,
		Logger:           logger,
	})

	<-ctx.Done()
	sub.Stop()
	<-sub.Exited()
	fmt.Println("\nStopped watching")
	return nil
}
