package node

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"fleetops/nodewarden/cmd/commands/cliutil"
	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/nodes"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [category]",
		Short: "List nodes",
		Long: `List nodes from the local registry.

A category filters the listing: all, running, stopped, suspended,
whitelisted, protected. Owners see their own nodes; admins see the
whole fleet.

Examples:
  nodewarden node list
  nodewarden node list running --page 2
  nodewarden node list -o json`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().Int("page-size", 25, "Nodes per page (0 disables paging)")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	actor, err := cliutil.ActorFrom(cmd)
	if err != nil {
		return err
	}

	category := nodes.CategoryAll
	if len(args) == 1 {
		category = strings.ToLower(args[0])
		if !nodes.ValidCategory(category) {
			return fmt.Errorf("unknown category %q", args[0])
		}
	}

	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	output, _ := cmd.Flags().GetString("output")

	svc, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	listed, total, err := svc.List(actor, category, page, pageSize)
	if err != nil {
		return err
	}

	if output == "json" {
		return cliutil.WriteJSON(cmd.OutOrStdout(), listed)
	}
	if output != "table" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	if total == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No nodes found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tOWNER\tSTATUS\tFLAGS\tAGE\tLAST ACCESS")
	fmt.Fprintln(w, "--\t----\t-----\t------\t-----\t---\t-----------")
	for _, node := range listed {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			node.ContainerID,
			node.Name,
			node.OwnerID,
			node.Status,
			formatFlags(&node),
			formatAge(node.CreatedAt),
			formatLastAccess(node.LastAccessed),
		)
	}
	w.Flush()

	if pageSize > 0 && total > pageSize {
		pages := (total + pageSize - 1) / pageSize
		fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d nodes)\n", page, pages, total)
	}
	return nil
}

func formatFlags(node *domain.Node) string {
	var flags []string
	if node.Suspended {
		flags = append(flags, "suspended")
	}
	if node.Whitelisted {
		flags = append(flags, "whitelisted")
	}
	if node.PurgeProtected {
		flags = append(flags, "protected")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func formatAge(created time.Time) string {
	days := int(time.Since(created).Hours() / 24)
	return fmt.Sprintf("%dd", days)
}

func formatLastAccess(lastAccessed time.Time) string {
	if lastAccessed.IsZero() {
		return "never"
	}
	return lastAccessed.Local().Format("2006-01-02 15:04")
}
