package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/BadgerOps/transferwatch/internal/model"
)

var volumesAvailable bool

func newVolumesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "Inspect the node's configured volumes",
		Example: `  transferwatch volumes list
  transferwatch volumes list --available
  transferwatch volumes validate /data/in/clip.mov
  transferwatch volumes reload`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured volumes",
		RunE:  volumesListRun,
	}
	list.Flags().BoolVar(&volumesAvailable, "available", false, "only volumes that are currently mounted")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "reload",
			Short: "Ask the node to reload its volume configuration",
			RunE:  volumesReloadRun,
		},
		&cobra.Command{
			Use:   "validate PATH",
			Short: "Check whether a path is inside a configured volume",
			Args:  cobra.ExactArgs(1),
			RunE:  volumesValidateRun,
		},
	)
	return cmd
}

func volumesListRun(cmd *cobra.Command, args []string) error {
	var (
		list model.VolumeList
		err  error
	)
	if volumesAvailable {
		list, err = globalClient.AvailableVolumes(cmd.Context())
	} else {
		list, err = globalClient.Volumes(cmd.Context())
	}
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return printJSON(list)
	}

	if len(list.Volumes) == 0 {
		fmt.Println("No volumes configured")
		return nil
	}
	fmt.Printf("%-20s %-10s %-8s %s\n", "Name", "Type", "Active", "Path")
	for _, raw := range list.Volumes {
		v := gjson.ParseBytes(raw)
		fmt.Printf("%-20s %-10s %-8t %s\n",
			truncate(v.Get("name").String(), 20),
			v.Get("volume_type").String(),
			v.Get("is_active").Bool(),
			v.Get("path").String(),
		)
	}
	return nil
}

func volumesReloadRun(cmd *cobra.Command, args []string) error {
	res, err := globalClient.ReloadVolumes(cmd.Context())
	recordAction("reload_volumes", "", err)
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return printJSON(res)
	}
	fmt.Printf("%s (%d volumes)\n", res.Message, res.VolumesCount)
	return nil
}

func volumesValidateRun(cmd *cobra.Command, args []string) error {
	res, err := globalClient.ValidatePath(cmd.Context(), args[0])
	if err != nil {
		return describeError(err)
	}
	if jsonOut {
		return printJSON(res)
	}
	if res.Valid {
		fmt.Printf("%s: valid\n", res.Path)
		return nil
	}
	fmt.Printf("%s: invalid", res.Path)
	if res.Error != "" {
		fmt.Printf(" (%s)", res.Error)
	}
	fmt.Println()
	return nil
}
