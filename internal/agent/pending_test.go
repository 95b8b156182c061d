package agent

import (
	"fmt"
	"testing"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
)

func TestPendingStore_AddRemove(t *testing.T) {
	s := NewPendingStore()

	approval := domain.PendingApproval{
		InterventionID: "int-000001",
		Status:         domain.ApprovalPending,
		CreatedAt:      time.Now().UTC(),
	}
	s.Add(approval, cycleState{})

	if got := s.Pending(); len(got) != 1 || got[0].InterventionID != "int-000001" {
		t.Fatalf("unexpected queue: %+v", got)
	}

	if _, ok := s.Remove("int-000001"); !ok {
		t.Fatalf("expected to remove known entry")
	}
	if _, ok := s.Remove("int-000001"); ok {
		t.Fatalf("second removal must fail")
	}
	if len(s.Pending()) != 0 {
		t.Fatalf("queue should be empty")
	}
}

func TestPendingStore_OrdersOldestFirst(t *testing.T) {
	s := NewPendingStore()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	s.Add(domain.PendingApproval{InterventionID: "b", CreatedAt: base.Add(time.Minute)}, cycleState{})
	s.Add(domain.PendingApproval{InterventionID: "a", CreatedAt: base}, cycleState{})

	got := s.Pending()
	if got[0].InterventionID != "a" || got[1].InterventionID != "b" {
		t.Fatalf("expected oldest first, got %+v", got)
	}
}

func TestHistoryStore_BoundedAndNewestFirst(t *testing.T) {
	h := NewHistoryStore(5)
	for i := 0; i < 8; i++ {
		h.Append(domain.Intervention{ID: fmt.Sprintf("int-%06d", i)})
	}

	all := h.Recent(0)
	if len(all) != 5 {
		t.Fatalf("history should be capped at 5, got %d", len(all))
	}
	if all[0].ID != "int-000007" {
		t.Fatalf("newest must come first, got %s", all[0].ID)
	}
	if all[4].ID != "int-000003" {
		t.Fatalf("oldest surviving record wrong: %s", all[4].ID)
	}

	if got := h.Recent(2); len(got) != 2 || got[0].ID != "int-000007" {
		t.Fatalf("limited read wrong: %+v", got)
	}
}

func TestHistoryStore_NextIDMonotonic(t *testing.T) {
	h := NewHistoryStore(10)
	first := h.NextID()
	second := h.NextID()
	if first != "int-000001" || second != "int-000002" {
		t.Fatalf("unexpected IDs: %s, %s", first, second)
	}
}
