// Package policy decides purge eligibility for a single node.
//
// Evaluate is a pure, total function of its three inputs: the same node
// snapshot, thresholds, and clock always yield the same decision. It never
// touches a store or the backend, which keeps purge runs reproducible and
// the outcomes auditable.
package policy

import (
	"fmt"
	"time"

	"fleetops/nodewarden/internal/domain"
)

// Thresholds is an explicit snapshot of the purge policy settings. Callers
// load it from the settings store at the start of each operation rather
// than holding a long-lived cached copy.
type Thresholds struct {
	MinAgeDays         int
	MaxInactiveDays    int
	ProtectRunning     bool
	ProtectWhitelisted bool
	ProtectRecent      bool
	RecentDays         int
}

// Decision is the evaluator's verdict for one node.
type Decision struct {
	// Eligible reports whether the node may be reclaimed.
	Eligible bool

	// Reason explains a protection verdict. Empty when eligible.
	Reason string

	// AgeDays is whole days since creation, truncated.
	AgeDays int

	// InactiveDays is whole days since last access, truncated, or -1 when
	// the node has never been accessed.
	InactiveDays int
}

// Protection reasons are part of the audit record format; the check order
// below determines which one is reported and must stay stable.
const (
	ReasonPurgeProtected = "Purge protected"
	ReasonWhitelisted    = "Whitelisted"
	ReasonRunning        = "Running"
	ReasonSuspended      = "Suspended"
)

// Evaluate decides whether the node is eligible for reclamation under the
// given thresholds at time now. Checks short-circuit at the first
// applicable protection.
func Evaluate(node *domain.Node, t Thresholds, now time.Time) Decision {
	ageDays := wholeDays(node.CreatedAt, now)
	inactiveDays := -1
	if !node.LastAccessed.IsZero() {
		inactiveDays = wholeDays(node.LastAccessed, now)
	}
	d := Decision{AgeDays: ageDays, InactiveDays: inactiveDays}

	if node.PurgeProtected {
		d.Reason = ReasonPurgeProtected
		return d
	}
	if node.Whitelisted && t.ProtectWhitelisted {
		d.Reason = ReasonWhitelisted
		return d
	}
	if node.Status == domain.StatusRunning && t.ProtectRunning {
		d.Reason = ReasonRunning
		return d
	}
	if node.Suspended {
		d.Reason = ReasonSuspended
		return d
	}

	// Age threshold is inclusive on the eligible side: a node exactly
	// min_age_days old is eligible.
	if ageDays < t.MinAgeDays {
		if t.ProtectRecent && ageDays < t.RecentDays {
			d.Reason = fmt.Sprintf("Recent (%dd < %dd)", ageDays, t.RecentDays)
		} else {
			d.Reason = fmt.Sprintf("Too new (%dd < %dd)", ageDays, t.MinAgeDays)
		}
		return d
	}

	if inactiveDays >= 0 && inactiveDays < t.MaxInactiveDays {
		d.Reason = fmt.Sprintf("Active (%dd < %dd)", inactiveDays, t.MaxInactiveDays)
		return d
	}

	d.Eligible = true
	return d
}

// wholeDays returns the number of whole days elapsed from from to to,
// truncated toward zero. Negative spans clamp to zero.
func wholeDays(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
