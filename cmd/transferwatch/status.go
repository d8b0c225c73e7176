package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BadgerOps/transferwatch/internal/dashboard"
	"github.com/BadgerOps/transferwatch/internal/viewmodel"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Display the node's infrastructure status",
		Long: `Display the status of the node's API, database, Redis and workers, each
classified as ok, warn or critical.`,
		Example: `  transferwatch status
  transferwatch status --json`,
		RunE: statusRun,
	}
}

func statusRun(cmd *cobra.Command, args []string) error {
	st, err := globalClient.Status(cmd.Context())
	if err != nil {
		return describeError(err)
	}
	view := dashboard.RenderStatus(st).(dashboard.StatusView)
	if jsonOut {
		return printJSON(view)
	}

	fmt.Println("Node Status")
	fmt.Println("===========")
	fmt.Println("")
	fmt.Printf("%-12s %-30s %s\n", "Component", "Status", "Tone")
	fmt.Println(strings.Repeat("-", 52))
	for _, c := range view.Components {
		fmt.Printf("%-12s %-30s %s\n", c.Label, truncate(c.Status, 30), c.Tone)
	}
	fmt.Println("")
	fmt.Printf("Version: %s\n", view.Version)
	return nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Display the node's health check",
		RunE:  healthRun,
	}
}

func healthRun(cmd *cobra.Command, args []string) error {
	h, err := globalClient.Health(cmd.Context())
	if err != nil {
		return describeError(err)
	}
	view := dashboard.RenderHealth(h).(dashboard.HealthView)
	if jsonOut {
		return printJSON(view)
	}

	fmt.Printf("%-12s %s (%s)\n", "Service:", view.Service, view.Version)
	fmt.Printf("%-12s %s\n", "Environment:", view.Environment)
	fmt.Printf("%-12s %s [%s]\n", "Status:", view.Status, view.Tone)
	fmt.Printf("%-12s %s\n", "Database:", view.Database)
	fmt.Printf("%-12s %s\n", "Redis:", view.Redis)
	if view.Tone == viewmodel.HealthCritical {
		return fmt.Errorf("node reports %s", view.Status)
	}
	return nil
}
