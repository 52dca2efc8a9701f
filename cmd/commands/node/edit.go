package node

import (
	"fmt"
	"strings"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/registry"
	"fleetops/nodewarden/internal/util"

	"github.com/spf13/cobra"
)

func EditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <container-id> <field> <value>",
		Short: "Edit a node field",
		Long: "Edit one of the editable node fields.\n\n" +
			"Editable fields:\n" + registry.FieldsHelp() +
			"\nExamples:\n" +
			"  nodewarden node edit ct-web-1 name web-primary\n" +
			"  nodewarden node edit ct-web-1 tags web,prod",
		Args:         cobra.ExactArgs(3),
		RunE:         runEdit,
		SilenceUsage: true,
	}

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	actor, err := cliutil.ActorFrom(cmd)
	if err != nil {
		return err
	}

	containerID := args[0]
	field := util.NormalizeKey(args[1])
	value := args[2]

	if registry.LookupField(field) == nil {
		return fmt.Errorf("unknown field %q (valid: %s)",
			args[1], strings.Join(registry.FieldNames(), ", "))
	}

	svc, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.EditField(actor, containerID, field, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q on node %s\n", field, value, containerID)
	return nil
}
