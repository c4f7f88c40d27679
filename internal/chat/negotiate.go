package chat

import (
	"context"
	"log/slog"

	"github.com/dkrylov/shoply/internal/domain"
)

// Committer performs the actual order creation once the user has
// confirmed. It is the only side-effecting collaborator of the
// negotiation flow.
type Committer interface {
	Commit(ctx context.Context, userID int64, lines []domain.OrderLine) (*domain.Order, error)
}

// OutcomeKind labels the result of a negotiation step.
type OutcomeKind int

const (
	// OutcomeProposed means a proposal is now awaiting confirmation.
	OutcomeProposed OutcomeKind = iota
	// OutcomeCommitted means the order was created.
	OutcomeCommitted
	// OutcomeCommitFailed means the backend rejected the order; the
	// proposal is gone and is not retried.
	OutcomeCommitFailed
	// OutcomeCancelled means the user rejected the proposal.
	OutcomeCancelled
	// OutcomeNothingPending means there was no proposal to act on.
	OutcomeNothingPending
)

// Outcome is the result of one negotiation step, consumed by the
// presenter.
type Outcome struct {
	Kind  OutcomeKind
	Lines []domain.OrderLine
	Order *domain.Order
	Err   error
}

// Negotiator drives the per-session order state machine: no pending
// order, awaiting confirmation, and back via commit or cancel.
type Negotiator struct {
	committer Committer
}

// NewNegotiator creates a negotiator that commits through the given
// collaborator.
func NewNegotiator(committer Committer) *Negotiator {
	return &Negotiator{committer: committer}
}

// Propose stores the items verbatim as the session's pending order,
// overwriting any previous proposal. It never touches the order
// backend. The caller must hold the session lock.
func (n *Negotiator) Propose(s *Session, lines []domain.OrderLine) Outcome {
	s.SetPending(lines)
	return Outcome{Kind: OutcomeProposed, Lines: lines}
}

// Confirm commits the session's pending order. The proposal is cleared
// before the backend call, so the committer runs at most once per
// proposal even if confirmation is repeated. On failure the backend's
// error surfaces in the outcome and nothing is retried. The caller
// must hold the session lock.
func (n *Negotiator) Confirm(ctx context.Context, s *Session) Outcome {
	pending := s.ClearPending()
	if pending == nil {
		return Outcome{Kind: OutcomeNothingPending}
	}

	order, err := n.committer.Commit(ctx, s.UserID, pending.Lines)
	if err != nil {
		slog.Warn("Order commit rejected", "user_id", s.UserID, "error", err)
		return Outcome{Kind: OutcomeCommitFailed, Lines: pending.Lines, Err: err}
	}

	slog.Info("Order committed via chat", "user_id", s.UserID, "order_id", order.ID, "total", order.TotalAmount)
	return Outcome{Kind: OutcomeCommitted, Lines: pending.Lines, Order: order}
}

// Cancel clears the pending order without touching the order backend.
// The caller must hold the session lock.
func (n *Negotiator) Cancel(s *Session) Outcome {
	if s.ClearPending() == nil {
		return Outcome{Kind: OutcomeNothingPending}
	}
	return Outcome{Kind: OutcomeCancelled}
}

// Abandon drops the pending order when an unrelated query arrives while
// a confirmation was outstanding. Reports whether anything was dropped.
// The caller must hold the session lock.
func (n *Negotiator) Abandon(s *Session) bool {
	return s.ClearPending() != nil
}
