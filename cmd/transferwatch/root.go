package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BadgerOps/transferwatch/internal/config"
	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/safety"
	"github.com/BadgerOps/transferwatch/internal/store"
)

var (
	// Global flags
	cfgPath   string
	envFile   string
	apiURL    string
	logLevel  string
	logFormat string
	jsonOut   bool
	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalClient *gateway.Client
	globalStore  *store.Store
)

// newClient builds a gateway client from the loaded config.
func newClient(obs gateway.Observer) (*gateway.Client, error) {
	g := globalCfg.Gateway
	return gateway.New(gateway.Options{
		BaseURL:      g.BaseURL,
		ClientHeader: g.ClientHeader,
		ClientID:     g.ClientID,
		Timeout:      g.Timeout.Std(),
		RateLimit:    g.RateLimit,
		MaxBodyBytes: g.MaxBodyBytes,
		Logger:       logger,
		Observer:     obs,
	})
}

// initializeComponents builds the gateway client and, for commands that
// journal their work, opens the store.
func initializeComponents(cmdName string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	client, err := newClient(nil)
	if err != nil {
		return err
	}
	globalClient = client

	if base, err := safety.ParseBaseURL(globalCfg.Gateway.BaseURL); err == nil && !safety.IsLoopbackHost(base) && base.Scheme != "https" {
		logger.Warn("automation node is reached over plain http on a non-loopback host", "base_url", globalCfg.Gateway.BaseURL)
	}

	if needsJournal(cmdName) {
		st, err := store.New(globalCfg.JournalPath(), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		globalStore = st
	}

	logger.Debug("components initialized", "base_url", client.BaseURL(), "journal", globalStore != nil)
	return nil
}

// needsJournal reports whether a command records to the SQLite journal.
func needsJournal(cmdName string) bool {
	journalCmds := map[string]bool{
		"serve":   true,
		"journal": true,
		"report":  true,
		"create":  true,
		"cancel":  true,
		"delete":  true,
		"pause":   true,
		"resume":  true,
		"reload":  true,
	}
	return journalCmds[cmdName]
}

// shouldSkipComponentInit checks if a command should skip component initialization
func shouldSkipComponentInit(cmdName string) bool {
	skipInitCmds := map[string]bool{
		"help":    true,
		"version": true,
		"config":  true,
		"show":    true,
		"init":    true,
	}
	return skipInitCmds[cmdName]
}

// closeStore closes the global store connection
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
		globalStore = nil
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transferwatch",
		Short: "Dashboard and CLI for Automation Node transfer jobs",
		Long: `transferwatch keeps a live view of the transfer jobs running on an
Automation Node. It polls the node's REST API on an adaptive cadence,
classifies every job into the active and history views, raises alerts,
and serves the result as a local JSON dashboard.

One-off operations (create, cancel, delete, pause and resume watch mode,
report download, volume management) are available as subcommands.`,
		Example: `  transferwatch serve --listen 127.0.0.1:8090
  transferwatch watch
  transferwatch transfers list --status pending
  transferwatch transfers create --source /data/in/a.mov --dest /data/out
  transferwatch transfers report 42 --out ./reports
  transferwatch status`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			if err := loadConfig(); err != nil {
				return err
			}

			if !shouldSkipComponentInit(cmd.Name()) {
				if err := initializeComponents(cmd.Name()); err != nil {
					return fmt.Errorf("failed to initialize components: %w", err)
				}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file consulted for TRANSFERWATCH_* settings")
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "override the Automation Node base URL")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	cmd.AddCommand(
		newServeCmd(),
		newWatchCmd(),
		newTransfersCmd(),
		newVolumesCmd(),
		newStatusCmd(),
		newHealthCmd(),
		newJournalCmd(),
		newConfigCmd(),
	)

	return cmd
}

// loadConfig resolves the config file, overlays the environment and
// command-line overrides, then validates the result.
func loadConfig() error {
	if cfgPath == "" {
		found, err := config.FindConfigFile()
		if err != nil {
			logger.Debug("config file not found, using defaults", "error", err)
		}
		cfgPath = found
	}

	if cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalCfg = cfg
	} else {
		globalCfg = config.DefaultConfig()
	}

	if err := globalCfg.ApplyEnv(envFile); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}
	if apiURL != "" {
		globalCfg.Gateway.BaseURL = apiURL
	}

	if err := globalCfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Debug("config loaded", "path", cfgPath, "base_url", globalCfg.Gateway.BaseURL)
	return nil
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
		"init":    true,
	}
	return skipConfigCmds[cmdName]
}
