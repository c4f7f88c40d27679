package chat

import (
	"context"
	"testing"

	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/store"
)

type fakeCommitter struct {
	calls  int
	err    error
	lastID int64
}

func (c *fakeCommitter) Commit(_ context.Context, userID int64, lines []domain.OrderLine) (*domain.Order, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	c.lastID++
	order := &domain.Order{ID: c.lastID, UserID: userID, Status: domain.OrderStatusPending}
	for _, line := range lines {
		order.Items = append(order.Items, domain.OrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return order, nil
}

func lockedSession(userID int64) *Session {
	s := &Session{UserID: userID}
	s.Lock()
	return s
}

func TestProposeOverwritesPrevious(t *testing.T) {
	t.Parallel()

	n := NewNegotiator(&fakeCommitter{})
	s := lockedSession(1)
	defer s.Unlock()

	n.Propose(s, []domain.OrderLine{{ProductID: 1, Quantity: 1}})
	n.Propose(s, []domain.OrderLine{{ProductID: 2, Quantity: 3}})

	pending := s.Pending()
	if pending == nil || len(pending.Lines) != 1 || pending.Lines[0].ProductID != 2 {
		t.Fatalf("pending = %+v, want single line for product 2", pending)
	}
}

func TestConfirmCommitsExactlyOnce(t *testing.T) {
	t.Parallel()

	committer := &fakeCommitter{}
	n := NewNegotiator(committer)
	s := lockedSession(1)
	defer s.Unlock()

	n.Propose(s, []domain.OrderLine{{ProductID: 1, Quantity: 2}})

	first := n.Confirm(context.Background(), s)
	if first.Kind != OutcomeCommitted {
		t.Fatalf("first confirm = %v, want committed", first.Kind)
	}
	if first.Order == nil || first.Order.Items[0].Quantity != 2 {
		t.Fatalf("committed order = %+v", first.Order)
	}

	// Repeating the confirmation must not create a second order.
	second := n.Confirm(context.Background(), s)
	if second.Kind != OutcomeNothingPending {
		t.Fatalf("second confirm = %v, want nothing pending", second.Kind)
	}
	if committer.calls != 1 {
		t.Fatalf("committer called %d times, want 1", committer.calls)
	}
}

func TestConfirmFailureClearsPendingAndDoesNotRetry(t *testing.T) {
	t.Parallel()

	committer := &fakeCommitter{err: &store.StockError{ProductName: "Yoga Mat 6mm", Available: 0}}
	n := NewNegotiator(committer)
	s := lockedSession(1)
	defer s.Unlock()

	n.Propose(s, []domain.OrderLine{{ProductID: 2, Quantity: 1}})

	outcome := n.Confirm(context.Background(), s)
	if outcome.Kind != OutcomeCommitFailed {
		t.Fatalf("outcome = %v, want commit failed", outcome.Kind)
	}
	if outcome.Err == nil {
		t.Fatal("expected the backend error to surface")
	}
	if s.HasPending() {
		t.Fatal("pending order must be gone after a failed commit")
	}

	// A follow-up confirmation finds nothing; the failed order is not retried.
	if got := n.Confirm(context.Background(), s); got.Kind != OutcomeNothingPending {
		t.Fatalf("follow-up confirm = %v, want nothing pending", got.Kind)
	}
	if committer.calls != 1 {
		t.Fatalf("committer called %d times, want 1", committer.calls)
	}
}

func TestCancelSkipsCommitter(t *testing.T) {
	t.Parallel()

	committer := &fakeCommitter{}
	n := NewNegotiator(committer)
	s := lockedSession(1)
	defer s.Unlock()

	n.Propose(s, []domain.OrderLine{{ProductID: 1, Quantity: 1}})

	if got := n.Cancel(s); got.Kind != OutcomeCancelled {
		t.Fatalf("cancel = %v, want cancelled", got.Kind)
	}
	if committer.calls != 0 {
		t.Fatalf("committer called %d times on cancel, want 0", committer.calls)
	}
	if s.HasPending() {
		t.Fatal("pending order must be gone after cancel")
	}
}

func TestCancelWithoutPending(t *testing.T) {
	t.Parallel()

	n := NewNegotiator(&fakeCommitter{})
	s := lockedSession(1)
	defer s.Unlock()

	if got := n.Cancel(s); got.Kind != OutcomeNothingPending {
		t.Fatalf("cancel = %v, want nothing pending", got.Kind)
	}
}

func TestAbandonReportsDrop(t *testing.T) {
	t.Parallel()

	n := NewNegotiator(&fakeCommitter{})
	s := lockedSession(1)
	defer s.Unlock()

	if n.Abandon(s) {
		t.Fatal("abandon reported a drop with nothing pending")
	}
	n.Propose(s, []domain.OrderLine{{ProductID: 1, Quantity: 1}})
	if !n.Abandon(s) {
		t.Fatal("abandon did not report the dropped proposal")
	}
	if s.HasPending() {
		t.Fatal("pending order must be gone after abandon")
	}
}

func TestSessionManagerReusesAndEndsSessions(t *testing.T) {
	t.Parallel()

	m := NewManager()
	a := m.Get(7)
	if b := m.Get(7); b != a {
		t.Fatal("Get returned a different session for the same user")
	}

	a.Lock()
	a.SetPending([]domain.OrderLine{{ProductID: 1, Quantity: 1}})
	a.Unlock()

	m.End(7)
	fresh := m.Get(7)
	if fresh == a {
		t.Fatal("End did not destroy the session")
	}
	if fresh.HasPending() {
		t.Fatal("new session inherited a pending order")
	}
}

func TestSetPendingCopiesLines(t *testing.T) {
	t.Parallel()

	s := lockedSession(1)
	defer s.Unlock()

	lines := []domain.OrderLine{{ProductID: 1, Quantity: 1}}
	s.SetPending(lines)
	lines[0].Quantity = 99

	if got := s.Pending().Lines[0].Quantity; got != 1 {
		t.Fatalf("pending quantity = %d, caller mutation leaked in", got)
	}
}
