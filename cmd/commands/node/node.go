/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package node

import (
	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/auth"
	"fleetops/nodewarden/internal/backend"
	"fleetops/nodewarden/internal/nodes"
	"fleetops/nodewarden/internal/registry"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage compute nodes",
		Long:  `Register, inspect, edit, and control the lifecycle of compute nodes.`,
	}

	cmd.AddCommand(CreateCommand())
	cmd.AddCommand(RemoveCommand())
	cmd.AddCommand(EditCommand())
	cmd.AddCommand(FlagCommand())
	cmd.AddCommand(ListCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(StartCommand())
	cmd.AddCommand(StopCommand())

	return cmd
}

// newService opens the registry and the selected backend for one command
// invocation. The caller must invoke the returned cleanup.
func newService(cmd *cobra.Command) (*nodes.Service, func(), error) {
	reg, err := registry.Open()
	if err != nil {
		return nil, nil, err
	}

	be, err := backend.Get(cliutil.BackendName(cmd), auth.DefaultStore())
	if err != nil {
		reg.Close()
		return nil, nil, err
	}

	cleanup := func() { reg.Close() }
	return nodes.NewService(reg, be, nil), cleanup, nil
}
