package history

import "time"

// Purge outcomes. Every node processed during a run receives exactly one.
// ActionProtected doubles as the dry-run outcome for eligible nodes, with
// ReasonDryRun recorded so the two cases stay distinguishable.
const (
	ActionPurged    = "purged"
	ActionProtected = "protected"
	ActionSkipped   = "skipped"
	ActionErrored   = "errored"
)

// ReasonDryRun marks an eligible node that a dry run left untouched.
const ReasonDryRun = "Dry run"

// Entry is one audited purge decision, grouped by run id.
type Entry struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	ContainerID string    `json:"container_id"`
	OwnerID     string    `json:"owner_id"`
	NodeName    string    `json:"node_name"`
	Action      string    `json:"action"`
	Reason      string    `json:"reason"`
	// AgeDays and InactiveDays capture the evaluator's inputs at decision
	// time. InactiveDays is -1 for nodes never accessed.
	AgeDays      int       `json:"age_days"`
	InactiveDays int       `json:"inactive_days"`
	CreatedAt    time.Time `json:"created_at"`
}
