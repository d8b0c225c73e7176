package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BadgerOps/transferwatch/internal/dashboard"
	"github.com/BadgerOps/transferwatch/internal/metrics"
	"github.com/BadgerOps/transferwatch/internal/poller"
	"github.com/BadgerOps/transferwatch/internal/store"
)

var serveListen string

// pruneInterval is how often the journal drops expired poll attempts.
const pruneInterval = time.Hour

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the polling dashboard",
		Long: `Start every dashboard widget and serve their snapshots over a local JSON
API. Each widget polls the Automation Node on its own cadence and falls
back to a slower cadence while the node is failing.

By default the server listens on the address configured in the config file
(default: 127.0.0.1:8090). Use --listen to override.`,
		Example: `  transferwatch serve
  transferwatch serve --listen 127.0.0.1:9000`,
		RunE: serveRun,
	}

	cmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (host:port)")

	return cmd
}

func serveRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if globalStore == nil {
		return fmt.Errorf("journal not initialized")
	}

	listen := serveListen
	if listen == "" {
		listen = globalCfg.Server.Listen
	}

	m := metrics.New()
	client, err := newClient(m)
	if err != nil {
		return err
	}

	obs := poller.Observers{m, globalStore}
	srv := dashboard.NewServer(dashboard.Options{
		Client:       client,
		Panels:       dashboard.NewPanels(client, globalCfg, obs, logger),
		Store:        globalStore,
		Metrics:      m,
		ReleaseDelay: globalCfg.Reports.ReleaseDelay.Std(),
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go pruneJournal(ctx, globalStore, globalCfg.Server.JournalRetention.Std(), log)

	log.Info("dashboard starting", "listen", listen, "node", client.BaseURL(), "journal", globalCfg.JournalPath())

	errChan := make(chan error, 1)
	go func() {
		fmt.Printf("Starting dashboard on %s...\n", listen)
		if err := srv.Start(ctx, listen); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received shutdown signal", "signal", sig)
		fmt.Println("\nShutting down dashboard...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		fmt.Println("Dashboard stopped gracefully")
	}

	return nil
}

// pruneJournal periodically drops poll attempts older than retention.
func pruneJournal(ctx context.Context, st *store.Store, retention time.Duration, log *slog.Logger) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.PruneAttempts(time.Now().Add(-retention))
			if err != nil {
				log.Warn("failed to prune journal", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("pruned journal", "removed", n)
			}
		}
	}
}
