package protect

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protect",
		Short: "Manage purge protection for nodes",
		Long: `Grant or revoke purge protection.

A protected node is never reclaimed by a purge run, regardless of its
age or inactivity, until the protection is revoked or expires.`,
	}

	cmd.AddCommand(GrantCommand())
	cmd.AddCommand(RevokeCommand())

	return cmd
}
