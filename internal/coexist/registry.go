// Package coexist implements the coexistence registry: the per-position record
// of which identities currently occupy a lattice node. Passive multi-occupancy
// is permitted; the registry only records it. Differentiation is the detection
// engine's job, and only when a trigger fires.
//
// The registry is explicit state owned by the tick scheduler, not a package
// singleton, so independent simulation instances never share occupancy.
package coexist

import (
	"github.com/nvandessel/tick-loop/internal/lattice"
)

// Registry maps positions to their occupant identity ids in registration
// order. Registration order is the stable ordering used by detection events.
type Registry struct {
	occupants map[lattice.Coord][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{occupants: make(map[lattice.Coord][]string)}
}

// Register adds id at c, ignoring duplicates, and returns the occupant list
// after the addition.
func (r *Registry) Register(c lattice.Coord, id string) []string {
	for _, existing := range r.occupants[c] {
		if existing == id {
			return r.occupants[c]
		}
	}
	r.occupants[c] = append(r.occupants[c], id)
	return r.occupants[c]
}

// Deregister removes id from c. Removing the last occupant clears the
// position. It reports whether the id was registered.
func (r *Registry) Deregister(c lattice.Coord, id string) bool {
	occ := r.occupants[c]
	for i, existing := range occ {
		if existing == id {
			occ = append(occ[:i], occ[i+1:]...)
			if len(occ) == 0 {
				delete(r.occupants, c)
			} else {
				r.occupants[c] = occ
			}
			return true
		}
	}
	return false
}

// Occupants returns the ids registered at c in registration order. The slice
// is shared; callers must not mutate it.
func (r *Registry) Occupants(c lattice.Coord) []string {
	return r.occupants[c]
}

// Contains reports whether id is registered at c.
func (r *Registry) Contains(c lattice.Coord, id string) bool {
	for _, existing := range r.occupants[c] {
		if existing == id {
			return true
		}
	}
	return false
}

// Positions returns every position with at least one occupant. Order is not
// specified; callers needing determinism sort the result.
func (r *Registry) Positions() []lattice.Coord {
	out := make([]lattice.Coord, 0, len(r.occupants))
	for c := range r.occupants {
		out = append(out, c)
	}
	return out
}

// Contents returns a deep copy of the registry keyed by the canonical "x,y,z"
// coordinate string, for snapshot capture.
func (r *Registry) Contents() map[string][]string {
	out := make(map[string][]string, len(r.occupants))
	for c, ids := range r.occupants {
		cp := make([]string, len(ids))
		copy(cp, ids)
		out[c.String()] = cp
	}
	return out
}
