package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/leadrouter/backend/internal/models"
)

// ErrStateConflict means a Commit observed workload or cursor values
// that moved since the snapshot was taken. Expected to be rare; the
// executor retries once before surfacing a failure.
var ErrStateConflict = errors.New("routing state changed since snapshot")

// Snapshot is a point-in-time view of the shared routing state:
// per-rep active assignment counts and per-pool rotation cursors.
type Snapshot struct {
	Workloads map[string]int
	Cursors   map[string]int
}

func (s Snapshot) Workload(repID string) int {
	return s.Workloads[repID]
}

func (s Snapshot) Cursor(key string) int {
	return s.Cursors[key]
}

// Mutation is the full set of writes one successful Apply commits:
// the assignment record, the rep's workload bump, and (for rotation
// strategies) the cursor advance. Expect* carry the snapshot values the
// decision was based on; Commit fails with ErrStateConflict when they
// no longer hold, so a decision is never committed against drifted
// state.
type Mutation struct {
	Assignment     models.Assignment
	RepID          string
	ExpectWorkload int
	CursorKey      string // empty when the strategy keeps no cursor
	ExpectCursor   int
	NextCursor     int
}

// StateStore owns the mutable routing state. Test paths only ever call
// Snapshot; Apply commits all of a Mutation atomically or none of it.
type StateStore interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Commit(ctx context.Context, mut Mutation) error
}

// MemoryState is the in-process StateStore, used by tests and as the
// reference for the locking discipline the durable store mirrors.
type MemoryState struct {
	mu          sync.Mutex
	workloads   map[string]int
	cursors     map[string]int
	assignments []models.Assignment
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		workloads: map[string]int{},
		cursors:   map[string]int{},
	}
}

// SetWorkload seeds a rep's counter, for tests and roster sync.
func (m *MemoryState) SetWorkload(repID string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workloads[repID] = n
}

// SetCursor seeds a rotation cursor, for tests and restarts.
func (m *MemoryState) SetCursor(key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[key] = n
}

func (m *MemoryState) Snapshot(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Workloads: make(map[string]int, len(m.workloads)),
		Cursors:   make(map[string]int, len(m.cursors)),
	}
	for k, v := range m.workloads {
		snap.Workloads[k] = v
	}
	for k, v := range m.cursors {
		snap.Cursors[k] = v
	}
	return snap, nil
}

func (m *MemoryState) Commit(ctx context.Context, mut Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.workloads[mut.RepID] != mut.ExpectWorkload {
		return ErrStateConflict
	}
	if mut.CursorKey != "" && m.cursors[mut.CursorKey] != mut.ExpectCursor {
		return ErrStateConflict
	}
	m.workloads[mut.RepID] = mut.ExpectWorkload + 1
	if mut.CursorKey != "" {
		m.cursors[mut.CursorKey] = mut.NextCursor
	}
	m.assignments = append(m.assignments, mut.Assignment)
	return nil
}

// Assignments returns the committed assignments in commit order.
func (m *MemoryState) Assignments() []models.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Assignment, len(m.assignments))
	copy(out, m.assignments)
	return out
}
