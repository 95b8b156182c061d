package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stitchfin/payops-agent/internal/domain"
)

// pendingEntry captures everything needed to resume a deferred cycle: the
// approval record plus the cycle state frozen at Decide time.
type pendingEntry struct {
	approval domain.PendingApproval
	state    cycleState
}

// PendingStore holds interventions awaiting a human decision.
type PendingStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
}

func NewPendingStore() *PendingStore {
	return &PendingStore{entries: make(map[string]pendingEntry)}
}

func (s *PendingStore) Add(approval domain.PendingApproval, st cycleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[approval.InterventionID] = pendingEntry{approval: approval, state: st}
}

// Remove takes an entry out of the store, returning it and whether it existed.
func (s *PendingStore) Remove(interventionID string) (pendingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[interventionID]
	if ok {
		delete(s.entries, interventionID)
	}
	return e, ok
}

// Pending returns the current approval queue ordered oldest first.
func (s *PendingStore) Pending() []domain.PendingApproval {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PendingApproval, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.approval)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// HistoryStore is a bounded in-memory log of interventions. It also issues
// intervention IDs so ordering survives concurrent writers.
type HistoryStore struct {
	mu      sync.Mutex
	records []domain.Intervention
	cap     int
	seq     int
}

func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = 200
	}
	return &HistoryStore{cap: capacity}
}

// NextID returns a monotonically increasing intervention ID.
func (h *HistoryStore) NextID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return fmt.Sprintf("int-%06d", h.seq)
}

func (h *HistoryStore) Append(iv domain.Intervention) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, iv)
	if len(h.records) > h.cap {
		h.records = h.records[len(h.records)-h.cap:]
	}
}

// Recent returns up to limit interventions, newest first.
func (h *HistoryStore) Recent(limit int) []domain.Intervention {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Intervention, 0, n)
	for i := len(h.records) - 1; i >= len(h.records)-n; i-- {
		out = append(out, h.records[i])
	}
	return out
}
