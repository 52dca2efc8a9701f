package policy

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fleetops/nodewarden/internal/domain"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		MinAgeDays:         30,
		MaxInactiveDays:    14,
		ProtectRunning:     true,
		ProtectWhitelisted: true,
		ProtectRecent:      true,
		RecentDays:         7,
	}
}

func nodeAged(now time.Time, ageDays, inactiveDays int) *domain.Node {
	node := &domain.Node{
		ContainerID: "ct-100",
		OwnerID:     "owner-1",
		Status:      domain.StatusStopped,
		CreatedAt:   now.AddDate(0, 0, -ageDays),
	}
	if inactiveDays >= 0 {
		node.LastAccessed = now.AddDate(0, 0, -inactiveDays)
	}
	return node
}

func TestEvaluate_EligibleNode(t *testing.T) {
	// Scenario: 31 days old, last accessed 20 days ago, no protections.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := Evaluate(nodeAged(now, 31, 20), defaultThresholds(), now)

	want := Decision{Eligible: true, AgeDays: 31, InactiveDays: 20}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("Decision mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_PurgeProtectedWinsOverEverything(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	node := nodeAged(now, 31, 20)
	node.PurgeProtected = true
	node.Whitelisted = true
	node.Status = domain.StatusRunning

	d := Evaluate(node, defaultThresholds(), now)
	if d.Eligible || d.Reason != ReasonPurgeProtected {
		t.Fatalf("expected %q, got %+v", ReasonPurgeProtected, d)
	}
}

func TestEvaluate_CheckOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := defaultThresholds()

	cases := []struct {
		name   string
		mutate func(*domain.Node)
		reason string
	}{
		{"whitelisted", func(n *domain.Node) { n.Whitelisted = true }, ReasonWhitelisted},
		{"running", func(n *domain.Node) { n.Status = domain.StatusRunning }, ReasonRunning},
		{"suspended", func(n *domain.Node) { n.Suspended = true }, ReasonSuspended},
		{"whitelisted beats running", func(n *domain.Node) {
			n.Whitelisted = true
			n.Status = domain.StatusRunning
		}, ReasonWhitelisted},
		{"running beats suspended", func(n *domain.Node) {
			n.Status = domain.StatusRunning
			n.Suspended = true
		}, ReasonRunning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node := nodeAged(now, 31, 20)
			tc.mutate(node)
			d := Evaluate(node, th, now)
			if d.Eligible || d.Reason != tc.reason {
				t.Errorf("expected reason %q, got %+v", tc.reason, d)
			}
		})
	}
}

func TestEvaluate_TogglesDisableProtections(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := defaultThresholds()
	th.ProtectRunning = false
	th.ProtectWhitelisted = false

	node := nodeAged(now, 31, 20)
	node.Status = domain.StatusRunning
	node.Whitelisted = true

	d := Evaluate(node, th, now)
	if !d.Eligible {
		t.Fatalf("expected eligible with protections disabled, got %+v", d)
	}
}

func TestEvaluate_AgeBoundaryInclusive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := defaultThresholds()

	// Exactly min_age_days old: eligible.
	d := Evaluate(nodeAged(now, 30, 20), th, now)
	if !d.Eligible {
		t.Errorf("expected node aged exactly min_age_days to be eligible, got %+v", d)
	}

	// One day younger: too new.
	d = Evaluate(nodeAged(now, 29, 20), th, now)
	if d.Eligible || d.Reason != "Too new (29d < 30d)" {
		t.Errorf("expected Too new, got %+v", d)
	}
}

func TestEvaluate_RecentVersusTooNew(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := defaultThresholds()

	d := Evaluate(nodeAged(now, 3, -1), th, now)
	if d.Reason != "Recent (3d < 7d)" {
		t.Errorf("expected Recent reason, got %+v", d)
	}

	// Older than recent_days but younger than min_age_days.
	d = Evaluate(nodeAged(now, 10, -1), th, now)
	if d.Reason != "Too new (10d < 30d)" {
		t.Errorf("expected Too new reason, got %+v", d)
	}

	// With protect_recent off, even very young nodes report Too new.
	th.ProtectRecent = false
	d = Evaluate(nodeAged(now, 3, -1), th, now)
	if d.Reason != "Too new (3d < 30d)" {
		t.Errorf("expected Too new reason with protect_recent off, got %+v", d)
	}
}

func TestEvaluate_InactivityWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := defaultThresholds()

	d := Evaluate(nodeAged(now, 40, 5), th, now)
	if d.Eligible || d.Reason != "Active (5d < 14d)" {
		t.Errorf("expected Active reason, got %+v", d)
	}

	// Exactly max_inactive_days: eligible (inclusive boundary).
	d = Evaluate(nodeAged(now, 40, 14), th, now)
	if !d.Eligible {
		t.Errorf("expected eligible at exactly max_inactive_days, got %+v", d)
	}

	// Never accessed: the inactivity check does not apply.
	d = Evaluate(nodeAged(now, 40, -1), th, now)
	if !d.Eligible || d.InactiveDays != -1 {
		t.Errorf("expected eligible with no last_accessed, got %+v", d)
	}
}

func TestEvaluate_TruncatesPartialDays(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := defaultThresholds()

	// 29 days and 23 hours old truncates to 29 days: still too new.
	node := &domain.Node{
		ContainerID: "ct-100",
		Status:      domain.StatusStopped,
		CreatedAt:   now.Add(-(29*24 + 23) * time.Hour),
	}
	d := Evaluate(node, th, now)
	if d.AgeDays != 29 || d.Eligible {
		t.Errorf("expected truncation to 29 days, got %+v", d)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := defaultThresholds()
	node := nodeAged(now, 31, 20)

	first := Evaluate(node, th, now)
	for range 10 {
		if diff := cmp.Diff(first, Evaluate(node, th, now)); diff != "" {
			t.Fatalf("Evaluate not deterministic (-first +repeat):\n%s", diff)
		}
	}
}
