// Package anchor implements the recruiter table: fixed per-node reference
// rhythms that identities attempt to re-synchronize with. Anchors are placed
// before a run starts and are read-only to identities; only their phase
// advances, at a fixed rate, once per tick.
package anchor

import (
	"math"

	"github.com/nvandessel/tick-loop/internal/lattice"
)

// Anchor is the reference rhythm at one lattice node.
type Anchor struct {
	Theta      float64 `json:"theta"`       // current phase, always in [0,1)
	Ancestry   string  `json:"ancestry"`    // symbolic tag string identities must match
	DeltaTheta float64 `json:"delta_theta"` // per-tick phase advancement
}

// Table maps lattice positions to anchors. Placement is immutable for the run;
// the engine owns the table and drives AdvancePhases.
type Table struct {
	anchors map[lattice.Coord]*Anchor
	// order preserves placement order so snapshots and phase advancement are
	// deterministic regardless of map iteration.
	order []lattice.Coord
}

// NewTable returns an empty anchor table.
func NewTable() *Table {
	return &Table{anchors: make(map[lattice.Coord]*Anchor)}
}

// Place installs an anchor at c. Placing at an occupied position replaces the
// existing anchor; the engine only does this before tick 0.
func (t *Table) Place(c lattice.Coord, theta float64, ancestry string, deltaTheta float64) {
	if _, exists := t.anchors[c]; !exists {
		t.order = append(t.order, c)
	}
	t.anchors[c] = &Anchor{
		Theta:      wrapPhase(theta),
		Ancestry:   ancestry,
		DeltaTheta: deltaTheta,
	}
}

// At returns the anchor at c, or nil when the position has none. A missing
// anchor is not an error: identities there simply stay ineligible.
func (t *Table) At(c lattice.Coord) *Anchor {
	return t.anchors[c]
}

// Len returns the number of placed anchors.
func (t *Table) Len() int {
	return len(t.anchors)
}

// AdvancePhases advances every anchor's phase by its own delta, mod 1.
func (t *Table) AdvancePhases() {
	for _, c := range t.order {
		a := t.anchors[c]
		a.Theta = wrapPhase(a.Theta + a.DeltaTheta)
	}
}

// Positions returns placed positions in placement order.
func (t *Table) Positions() []lattice.Coord {
	out := make([]lattice.Coord, len(t.order))
	copy(out, t.order)
	return out
}

// wrapPhase maps x into [0,1). Negative inputs wrap upward.
func wrapPhase(x float64) float64 {
	x = math.Mod(x, 1.0)
	if x < 0 {
		x += 1.0
	}
	return x
}

// PhaseDistance returns the circular distance between two phases in [0,1),
// i.e. the shorter way around the unit circle. Used by the phase-match gate.
func PhaseDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 1.0)
	if d > 0.5 {
		d = 1.0 - d
	}
	return d
}
