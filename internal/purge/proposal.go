package purge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetops/nodewarden/internal/domain"
)

// DefaultProposalTTL is how long an unconfirmed proposal stays valid.
const DefaultProposalTTL = 2 * time.Minute

// ErrProposalNotFound is returned by Confirm for an unknown or expired
// token. Expired proposals are discarded, not kept around to report a
// distinct state.
var ErrProposalNotFound = fmt.Errorf("purge: no such pending proposal: %w", domain.ErrNotFound)

// Proposal is a pending, not yet confirmed purge request.
type Proposal struct {
	Token     string
	Mode      Mode
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Proposals implements two-phase purge confirmation: Propose issues a
// token, Confirm redeems it within the TTL and executes the run. Tokens
// are single-use. It is the programmatic counterpart to the CLI's
// interactive prompt, for hosts (bots, web handlers) where the requester
// and the confirmer are separate calls.
type Proposals struct {
	orch *Orchestrator
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	pending map[string]Proposal
}

// NewProposals creates a proposal book over the orchestrator. A zero ttl
// selects DefaultProposalTTL.
func NewProposals(orch *Orchestrator, ttl time.Duration) *Proposals {
	if ttl <= 0 {
		ttl = DefaultProposalTTL
	}
	return &Proposals{
		orch:    orch,
		ttl:     ttl,
		now:     time.Now,
		pending: map[string]Proposal{},
	}
}

// Propose registers a purge request and returns the confirmation token.
func (p *Proposals) Propose(mode Mode) (Proposal, error) {
	if mode != ModeDry && mode != ModeReal {
		return Proposal{}, fmt.Errorf("purge: unknown mode %q: %w", mode, domain.ErrValidation)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.pruneLocked(now)

	proposal := Proposal{
		Token:     uuid.NewString(),
		Mode:      mode,
		CreatedAt: now,
		ExpiresAt: now.Add(p.ttl),
	}
	p.pending[proposal.Token] = proposal
	return proposal, nil
}

// Confirm redeems a token and executes the proposed run. Real-mode runs
// require an administrator. The token is consumed whether or not the run
// itself succeeds.
func (p *Proposals) Confirm(ctx context.Context, actor domain.Actor, token string) (*Result, error) {
	p.mu.Lock()
	now := p.now()
	p.pruneLocked(now)
	proposal, ok := p.pending[token]
	if ok {
		delete(p.pending, token)
	}
	p.mu.Unlock()

	if !ok {
		return nil, ErrProposalNotFound
	}
	if proposal.Mode == ModeReal && !actor.IsAdmin() {
		return nil, fmt.Errorf("purge: confirming a real run requires admin: %w", domain.ErrPermissionDenied)
	}
	return p.orch.RunPurge(ctx, proposal.Mode)
}

// Pending reports how many unexpired proposals are outstanding.
func (p *Proposals) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked(p.now())
	return len(p.pending)
}

func (p *Proposals) pruneLocked(now time.Time) {
	for token, proposal := range p.pending {
		if !now.Before(proposal.ExpiresAt) {
			delete(p.pending, token)
		}
	}
}
