package purge

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetops/nodewarden/internal/domain"
)

func TestProposals_ConfirmExecutes(t *testing.T) {
	env := newEnv(t)
	env.addNode(t, "ct-old")
	proposals := NewProposals(env.orch, 0)

	proposal, err := proposals.Propose(ModeDry)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if proposal.Token == "" {
		t.Fatal("expected a confirmation token")
	}

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	result, err := proposals.Confirm(context.Background(), admin, proposal.Token)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if len(result.Protected) != 1 {
		t.Errorf("expected the dry run to execute, got %+v", result)
	}
}

func TestProposals_TokenIsSingleUse(t *testing.T) {
	env := newEnv(t)
	proposals := NewProposals(env.orch, 0)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	proposal, _ := proposals.Propose(ModeDry)
	if _, err := proposals.Confirm(context.Background(), admin, proposal.Token); err != nil {
		t.Fatalf("first Confirm failed: %v", err)
	}
	if _, err := proposals.Confirm(context.Background(), admin, proposal.Token); !errors.Is(err, ErrProposalNotFound) {
		t.Errorf("expected ErrProposalNotFound on reuse, got %v", err)
	}
}

func TestProposals_ExpiredTokenDiscarded(t *testing.T) {
	env := newEnv(t)
	proposals := NewProposals(env.orch, time.Minute)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	proposal, _ := proposals.Propose(ModeReal)
	proposals.now = func() time.Time { return proposal.ExpiresAt.Add(time.Second) }

	if _, err := proposals.Confirm(context.Background(), admin, proposal.Token); !errors.Is(err, ErrProposalNotFound) {
		t.Errorf("expected expired proposal discarded, got %v", err)
	}
	if proposals.Pending() != 0 {
		t.Errorf("expected no pending proposals, got %d", proposals.Pending())
	}
}

func TestProposals_RealRunRequiresAdmin(t *testing.T) {
	env := newEnv(t)
	proposals := NewProposals(env.orch, 0)
	owner := domain.Actor{ID: "owner-1", Role: domain.RoleOwner}

	proposal, _ := proposals.Propose(ModeReal)
	if _, err := proposals.Confirm(context.Background(), owner, proposal.Token); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestProposals_RejectsUnknownMode(t *testing.T) {
	env := newEnv(t)
	proposals := NewProposals(env.orch, 0)

	if _, err := proposals.Propose(Mode("loud")); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
