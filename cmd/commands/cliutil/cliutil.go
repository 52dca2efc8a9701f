// Package cliutil holds small helpers shared by the command groups.
package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/util"
)

// ActorFrom resolves the acting identity from the persistent --actor and
// --role flags. An empty --actor falls back to the local username.
func ActorFrom(cmd *cobra.Command) (domain.Actor, error) {
	id, _ := cmd.Flags().GetString("actor")
	if id == "" {
		id = os.Getenv("USER")
	}
	if id == "" {
		return domain.Actor{}, fmt.Errorf("no actor identity: pass --actor or set $USER")
	}

	role, _ := cmd.Flags().GetString("role")
	switch util.NormalizeKey(role) {
	case "owner", "":
		return domain.Actor{ID: id, Role: domain.RoleOwner}, nil
	case "admin":
		return domain.Actor{ID: id, Role: domain.RoleAdmin}, nil
	case "none":
		return domain.Actor{ID: id, Role: domain.RoleNone}, nil
	default:
		return domain.Actor{}, fmt.Errorf("unknown role %q (owner, admin, none)", role)
	}
}

// BackendName reads the persistent --backend flag.
func BackendName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("backend")
	return util.NormalizeKey(name)
}

// WriteJSON pretty-prints v for -o json output.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
