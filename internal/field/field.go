// Package field implements the per-node reinforcement ("echo") field: a scalar
// value per lattice node that decays multiplicatively each tick, diffuses from
// neighbors, and gates return eligibility through a hybrid local/neighbor read.
//
// Decay and diffusion both follow a snapshot-then-apply discipline: all reads
// for a tick complete against the pre-tick values before any cell is written,
// so results are independent of iteration order.
package field

import (
	"fmt"

	"github.com/nvandessel/tick-loop/internal/lattice"
)

// Field holds one reinforcement value per lattice node.
// Values are never negative.
type Field struct {
	bounds lattice.Bounds
	conn   lattice.Connectivity

	localWeight    float64
	neighborWeight float64

	rho []float64
	// next is the write buffer for snapshot-then-apply updates. It is reused
	// across ticks to avoid per-tick allocation.
	next []float64
}

// New constructs a zero-valued field over the given bounds.
func New(bounds lattice.Bounds, conn lattice.Connectivity, localWeight, neighborWeight float64) (*Field, error) {
	if bounds.Count() <= 0 {
		return nil, fmt.Errorf("field: bounds must be positive, got %+v", bounds)
	}
	if !conn.Valid() {
		return nil, fmt.Errorf("field: unsupported connectivity %d", conn)
	}
	if localWeight < 0 || neighborWeight < 0 {
		return nil, fmt.Errorf("field: hybrid weights must be non-negative, got %v/%v", localWeight, neighborWeight)
	}
	n := bounds.Count()
	return &Field{
		bounds:         bounds,
		conn:           conn,
		localWeight:    localWeight,
		neighborWeight: neighborWeight,
		rho:            make([]float64, n),
		next:           make([]float64, n),
	}, nil
}

// Rho returns the local reinforcement at c.
func (f *Field) Rho(c lattice.Coord) float64 {
	return f.rho[f.bounds.Index(c)]
}

// Reinforce adds amount at c. Negative amounts are clamped so the cell never
// goes below zero.
func (f *Field) Reinforce(c lattice.Coord, amount float64) {
	i := f.bounds.Index(c)
	f.rho[i] += amount
	if f.rho[i] < 0 {
		f.rho[i] = 0
	}
}

// Decay multiplies every cell by factor. Factor is expected to lie in [0,1];
// the constructor of the run configuration enforces that.
func (f *Field) Decay(factor float64) {
	for i := range f.rho {
		f.rho[i] *= factor
	}
}

// neighborMean returns the mean of the pre-tick values of c's neighbors, read
// from the given snapshot slice. A node with no neighbors contributes zero.
func (f *Field) neighborMean(snapshot []float64, c lattice.Coord) float64 {
	neighbors := lattice.Neighbors(f.bounds, f.conn, c)
	if len(neighbors) == 0 {
		return 0
	}
	var sum float64
	for _, n := range neighbors {
		sum += snapshot[f.bounds.Index(n)]
	}
	return sum / float64(len(neighbors))
}

// Diffuse adds alpha times the neighbor mean to every cell. All neighbor means
// are computed against the pre-call values, so the update is order-independent.
// Alpha <= 0 is a no-op.
func (f *Field) Diffuse(alpha float64) {
	if alpha <= 0 {
		return
	}
	copy(f.next, f.rho)
	for i := range f.rho {
		c := f.bounds.CoordAt(i)
		f.rho[i] = f.next[i] + alpha*f.neighborMean(f.next, c)
	}
}

// Hybrid returns the weighted combination of the local value at c and the mean
// of its neighbors. This is a read used for gating only; nothing is stored.
func (f *Field) Hybrid(c lattice.Coord) float64 {
	local := f.rho[f.bounds.Index(c)]
	return f.localWeight*local + f.neighborWeight*f.neighborMean(f.rho, c)
}

// Total returns the sum of all cells.
func (f *Field) Total() float64 {
	var sum float64
	for _, v := range f.rho {
		sum += v
	}
	return sum
}

// Max returns the largest cell value.
func (f *Field) Max() float64 {
	var max float64
	for _, v := range f.rho {
		if v > max {
			max = v
		}
	}
	return max
}

// MinValue returns the smallest cell value. Used by invariant checks; it must
// never be negative.
func (f *Field) MinValue() float64 {
	if len(f.rho) == 0 {
		return 0
	}
	min := f.rho[0]
	for _, v := range f.rho[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Values returns a copy of the full field in index order. Intended for
// snapshot capture and export; mutating the returned slice does not affect
// the field.
func (f *Field) Values() []float64 {
	out := make([]float64, len(f.rho))
	copy(out, f.rho)
	return out
}

// Bounds returns the lattice extent the field is defined over.
func (f *Field) Bounds() lattice.Bounds {
	return f.bounds
}
