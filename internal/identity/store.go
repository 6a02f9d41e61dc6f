package identity

import (
	"fmt"

	"github.com/nvandessel/tick-loop/internal/lattice"
)

// Store owns the identities of one simulation instance. Iteration order is
// insertion order, and ids are assigned from a sequential counter, so two runs
// seeded identically behave identically.
type Store struct {
	byID  map[string]*Identity
	order []*Identity
	seq   int
}

// NewStore returns an empty identity store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Identity)}
}

// Add registers an identity, assigning its id when empty. Explicit ids must be
// unique. The identity's status defaults to pending.
func (s *Store) Add(id *Identity) (*Identity, error) {
	if id.ID == "" {
		s.seq++
		id.ID = fmt.Sprintf("idn-%06d", s.seq)
	}
	if _, exists := s.byID[id.ID]; exists {
		return nil, fmt.Errorf("identity: duplicate id %q", id.ID)
	}
	if id.Status == "" {
		id.Status = StatusPending
	}
	s.byID[id.ID] = id
	s.order = append(s.order, id)
	return id, nil
}

// Get returns the identity with the given id, or nil.
func (s *Store) Get(id string) *Identity {
	return s.byID[id]
}

// Remove deletes the identity with the given id. It reports whether the
// identity existed. Deregistration from the coexistence registry is the
// engine's responsibility.
func (s *Store) Remove(id string) bool {
	if _, exists := s.byID[id]; !exists {
		return false
	}
	delete(s.byID, id)
	for i, other := range s.order {
		if other.ID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns the identities in insertion order. The slice is shared; callers
// must not mutate it.
func (s *Store) All() []*Identity {
	return s.order
}

// Len returns the number of identities.
func (s *Store) Len() int {
	return len(s.order)
}

// AtPosition returns the identities currently at c, in insertion order.
func (s *Store) AtPosition(c lattice.Coord) []*Identity {
	var out []*Identity
	for _, id := range s.order {
		if id.Position == c {
			out = append(out, id)
		}
	}
	return out
}
