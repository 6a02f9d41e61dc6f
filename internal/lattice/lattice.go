// Package lattice defines the discrete 3D coordinate space the simulation runs
// on and the validated neighbor-connectivity rule. All functions are pure;
// bounds and connectivity are fixed once a run is constructed.
package lattice

import "fmt"

// Coord is an integer position on the lattice.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// String returns the canonical "x,y,z" form used as a map key in snapshots.
func (c Coord) String() string {
	return fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z)
}

// Add returns the coordinate offset by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{X: c.X + d.X, Y: c.Y + d.Y, Z: c.Z + d.Z}
}

// Bounds is the fixed extent of the lattice. Valid coordinates lie in
// [0,Lx) x [0,Ly) x [0,Lz).
type Bounds struct {
	Lx, Ly, Lz int
}

// Contains reports whether c lies inside the bounds. There is no wraparound;
// out-of-bounds coordinates are simply not part of the lattice.
func (b Bounds) Contains(c Coord) bool {
	return c.X >= 0 && c.X < b.Lx &&
		c.Y >= 0 && c.Y < b.Ly &&
		c.Z >= 0 && c.Z < b.Lz
}

// Count returns the number of nodes in the lattice.
func (b Bounds) Count() int {
	return b.Lx * b.Ly * b.Lz
}

// Index maps a coordinate to its flat-slice offset (x-major, then y, then z).
func (b Bounds) Index(c Coord) int {
	return (c.X*b.Ly+c.Y)*b.Lz + c.Z
}

// CoordAt is the inverse of Index.
func (b Bounds) CoordAt(i int) Coord {
	z := i % b.Lz
	i /= b.Lz
	return Coord{X: i / b.Ly, Y: i % b.Ly, Z: z}
}

// Center returns the integer center of the lattice.
func (b Bounds) Center() Coord {
	return Coord{X: b.Lx / 2, Y: b.Ly / 2, Z: b.Lz / 2}
}

// Connectivity selects how many entries of the offset table are in effect.
type Connectivity int

const (
	// Conn6 uses the 6 axis-aligned face neighbors.
	Conn6 Connectivity = 6
	// Conn8 adds the (-1,-1,0) and (-1,+1,0) xy-plane diagonals. This is the
	// validated level: the offset table is ordered and truncated at the
	// connectivity count, so exactly these two of the four xy-diagonals are
	// included, for every node. See neighborOffsets.
	Conn8 Connectivity = 8
	// Conn12 extends Conn8 with the remaining two xy-diagonals and the first
	// two xz-diagonals of the offset table.
	Conn12 Connectivity = 12
)

// Valid reports whether the connectivity is one of the supported levels.
func (c Connectivity) Valid() bool {
	return c == Conn6 || c == Conn8 || c == Conn12
}

// neighborOffsets is the ordered offset table. Neighbor sets are produced by
// taking the first int(connectivity) entries and filtering by bounds. The
// ordering is load-bearing: Conn8 takes the 6 faces plus the first two
// xy-diagonals, and every diffusion result depends on that choice being the
// same at every node.
var neighborOffsets = [12]Coord{
	{X: -1}, {X: 1}, {Y: -1}, {Y: 1}, {Z: -1}, {Z: 1},
	{X: -1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: -1}, {X: 1, Y: 1},
	{X: -1, Z: -1}, {X: -1, Z: 1},
}

// Neighbors returns the in-bounds neighbors of c under the given connectivity,
// in offset-table order. Boundary nodes get fewer neighbors; there is no
// reflection or wraparound.
func Neighbors(b Bounds, conn Connectivity, c Coord) []Coord {
	out := make([]Coord, 0, int(conn))
	for _, d := range neighborOffsets[:int(conn)] {
		n := c.Add(d)
		if b.Contains(n) {
			out = append(out, n)
		}
	}
	return out
}
