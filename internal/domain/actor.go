package domain

// Actor roles. Identity resolution happens in the calling front-end; the
// core only receives a resolved id and role and enforces against them.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleNone  = "none"
)

// Actor is a resolved caller identity.
type Actor struct {
	ID   string
	Role string
}

// CanManage reports whether the actor may mutate the given node: admins
// always, owners only for their own nodes.
func (a Actor) CanManage(node *Node) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return a.Role == RoleOwner && node != nil && a.ID == node.OwnerID
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
