package node

import (
	"fmt"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/registry"

	"github.com/spf13/cobra"
)

func CreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new node",
		Long: `Register a new node in the local registry.

The container id must be unique; leave --id empty to have one generated.
Admins may register nodes on behalf of another owner with --owner.

Examples:
  nodewarden node create --name web-1 --ram 4GB --cpu 2
  nodewarden node create --id ct-web-1 --location fsn1 --tags web,prod`,
		RunE:         runCreate,
		SilenceUsage: true,
	}

	cmd.Flags().String("id", "", "Container id (generated when empty)")
	cmd.Flags().String("name", "", "Display name (defaults to the container id)")
	cmd.Flags().String("owner", "", "Owner id (admins only, defaults to the actor)")
	cmd.Flags().String("ram", "", "Memory allocation, e.g. 4GB")
	cmd.Flags().Int("cpu", 0, "CPU core count")
	cmd.Flags().String("storage", "", "Storage allocation, e.g. 40GB")
	cmd.Flags().String("location", "", "Placement location")
	cmd.Flags().String("os", "", "OS image")
	cmd.Flags().StringSlice("tags", nil, "Tags for the node")

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	actor, err := cliutil.ActorFrom(cmd)
	if err != nil {
		return err
	}

	svc, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	owner, _ := cmd.Flags().GetString("owner")
	ram, _ := cmd.Flags().GetString("ram")
	cpu, _ := cmd.Flags().GetInt("cpu")
	storage, _ := cmd.Flags().GetString("storage")
	location, _ := cmd.Flags().GetString("location")
	osImage, _ := cmd.Flags().GetString("os")
	tags, _ := cmd.Flags().GetStringSlice("tags")

	node, err := svc.Create(actor, registry.CreateSpec{
		ContainerID: id,
		OwnerID:     owner,
		Name:        name,
		RAM:         ram,
		CPUCores:    cpu,
		Storage:     storage,
		Location:    location,
		OSImage:     osImage,
		Tags:        tags,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Node %q (ID: %s) registered for owner %s.\n",
		node.Name, node.ContainerID, node.OwnerID)
	return nil
}
