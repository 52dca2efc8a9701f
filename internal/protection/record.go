package protection

import "time"

// Protection is one purge-exemption grant for a node. Multiple records may
// exist historically for the same container id; a node is protected while
// at least one non-expired record exists.
type Protection struct {
	ID          int64     `json:"id"`
	ContainerID string    `json:"container_id"`
	GrantedBy   string    `json:"granted_by"`
	Reason      string    `json:"reason"`
	// ExpiresAt is zero for grants that never expire.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the grant still protects its node at time now.
func (p Protection) Active(now time.Time) bool {
	return p.ExpiresAt.IsZero() || p.ExpiresAt.After(now)
}
