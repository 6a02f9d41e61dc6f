package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvandessel/tick-loop/internal/snapshot"
)

// InMemoryRunStore implements RunStore for testing and development.
type InMemoryRunStore struct {
	mu    sync.RWMutex
	runs  map[string]RunMeta
	order []string
	ticks map[string][]snapshot.Tick
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs:  make(map[string]RunMeta),
		ticks: make(map[string][]snapshot.Tick),
	}
}

// CreateRun records a new run.
func (s *InMemoryRunStore) CreateRun(ctx context.Context, meta RunMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meta.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if _, exists := s.runs[meta.ID]; exists {
		return fmt.Errorf("run already exists: %s", meta.ID)
	}

	s.runs[meta.ID] = meta
	s.order = append(s.order, meta.ID)
	return nil
}

// GetRun retrieves run metadata by ID. Returns nil if not found.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, exists := s.runs[id]
	if !exists {
		return nil, nil
	}
	meta.TickCount = len(s.ticks[id])
	return &meta, nil
}

// ListRuns returns all runs in creation order.
func (s *InMemoryRunStore) ListRuns(ctx context.Context) ([]RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunMeta, 0, len(s.order))
	for _, id := range s.order {
		meta := s.runs[id]
		meta.TickCount = len(s.ticks[id])
		out = append(out, meta)
	}
	return out, nil
}

// DeleteRun removes a run and its tick history.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return fmt.Errorf("run not found: %s", id)
	}
	delete(s.runs, id)
	delete(s.ticks, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// AppendTick appends one tick snapshot to a run's history. Ticks must arrive
// in order without gaps.
func (s *InMemoryRunStore) AppendTick(ctx context.Context, runID string, snap snapshot.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; !exists {
		return fmt.Errorf("run not found: %s", runID)
	}
	history := s.ticks[runID]
	if want := len(history) + 1; snap.Tick != want {
		return fmt.Errorf("out-of-order tick %d for run %s, want %d", snap.Tick, runID, want)
	}
	s.ticks[runID] = append(history, snap)
	return nil
}

// GetTick retrieves one tick snapshot. Returns nil if not recorded.
func (s *InMemoryRunStore) GetTick(ctx context.Context, runID string, tick int) (*snapshot.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.ticks[runID]
	if tick < 1 || tick > len(history) {
		return nil, nil
	}
	snap := history[tick-1]
	return &snap, nil
}

// GetTicks returns a run's full tick history in order.
func (s *InMemoryRunStore) GetTicks(ctx context.Context, runID string) ([]snapshot.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.ticks[runID]
	out := make([]snapshot.Tick, len(history))
	copy(out, history)
	return out, nil
}

// Sync is a no-op for the in-memory store.
func (s *InMemoryRunStore) Sync(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *InMemoryRunStore) Close() error { return nil }
