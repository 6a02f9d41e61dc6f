// Package pattern ships the built-in timing-pattern templates: named sets of
// node offsets with per-node timing rates, placed around a center position to
// seed a run's reinforcement field. The catalog is static input data; the
// engine itself knows nothing about particular patterns.
package pattern

import (
	"fmt"
	"sort"

	"github.com/nvandessel/tick-loop/internal/lattice"
)

// Node is one node of a timing pattern, positioned relative to the pattern
// center. Rate scales the reinforcement seeded at that node.
type Node struct {
	Offset lattice.Coord `json:"offset" yaml:"offset"`
	Rate   float64       `json:"rate" yaml:"rate"`
	Role   string        `json:"role" yaml:"role"`
}

// Pattern is a named timing-pattern template.
type Pattern struct {
	Name     string  `json:"name" yaml:"name"`
	CoreRate float64 `json:"core_rate" yaml:"core_rate"`
	Nodes    []Node  `json:"nodes" yaml:"nodes"`
}

// Placement is a pattern node resolved to an absolute lattice position.
type Placement struct {
	Position lattice.Coord
	Rate     float64
	Role     string
}

// Place resolves the pattern's nodes around center, dropping nodes that fall
// outside the lattice.
func (p Pattern) Place(b lattice.Bounds, center lattice.Coord) []Placement {
	out := make([]Placement, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		pos := center.Add(n.Offset)
		if !b.Contains(pos) {
			continue
		}
		out = append(out, Placement{Position: pos, Rate: n.Rate, Role: n.Role})
	}
	return out
}

// Get returns the named built-in pattern.
func Get(name string) (Pattern, error) {
	p, ok := catalog[name]
	if !ok {
		return Pattern{}, fmt.Errorf("pattern: unknown pattern %q", name)
	}
	return p, nil
}

// Names returns the built-in pattern names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var catalog = map[string]Pattern{
	// Dense multi-shell template: a core, a full first shell, an intermediate
	// diagonal shell, and sparse edge connectors.
	"proton": {
		Name:     "proton",
		CoreRate: 1.0,
		Nodes: []Node{
			{Offset: lattice.Coord{}, Rate: 1.0, Role: "core"},

			{Offset: lattice.Coord{X: 1}, Rate: 0.95, Role: "primary_shell"},
			{Offset: lattice.Coord{X: -1}, Rate: 0.95, Role: "primary_shell"},
			{Offset: lattice.Coord{Y: 1}, Rate: 0.95, Role: "primary_shell"},
			{Offset: lattice.Coord{Y: -1}, Rate: 0.95, Role: "primary_shell"},
			{Offset: lattice.Coord{Z: 1}, Rate: 0.95, Role: "primary_shell"},
			{Offset: lattice.Coord{Z: -1}, Rate: 0.95, Role: "primary_shell"},
			{Offset: lattice.Coord{X: 1, Y: 1}, Rate: 0.95, Role: "primary_shell"},
			{Offset: lattice.Coord{X: -1, Y: -1}, Rate: 0.95, Role: "primary_shell"},

			{Offset: lattice.Coord{X: 1, Z: 1}, Rate: 0.85, Role: "intermediate_shell"},
			{Offset: lattice.Coord{X: -1, Z: -1}, Rate: 0.85, Role: "intermediate_shell"},
			{Offset: lattice.Coord{Y: 1, Z: 1}, Rate: 0.85, Role: "intermediate_shell"},
			{Offset: lattice.Coord{Y: -1, Z: -1}, Rate: 0.85, Role: "intermediate_shell"},
			{Offset: lattice.Coord{X: 1, Y: 1, Z: 1}, Rate: 0.85, Role: "intermediate_shell"},
			{Offset: lattice.Coord{X: -1, Y: -1, Z: -1}, Rate: 0.85, Role: "intermediate_shell"},
			{Offset: lattice.Coord{X: 1, Y: -1}, Rate: 0.85, Role: "intermediate_shell"},
			{Offset: lattice.Coord{X: -1, Y: 1}, Rate: 0.85, Role: "intermediate_shell"},

			{Offset: lattice.Coord{X: 2}, Rate: 0.75, Role: "edge_connector"},
			{Offset: lattice.Coord{X: -2}, Rate: 0.75, Role: "edge_connector"},
			{Offset: lattice.Coord{Y: 2}, Rate: 0.75, Role: "edge_connector"},
			{Offset: lattice.Coord{Y: -2}, Rate: 0.75, Role: "edge_connector"},
			{Offset: lattice.Coord{X: 2, Y: 1}, Rate: 0.75, Role: "edge_connector"},
			{Offset: lattice.Coord{X: -2, Y: -1}, Rate: 0.75, Role: "edge_connector"},
		},
	},

	// Light orbital template: weaker core, planar interface, sparse outer cloud.
	"electron": {
		Name:     "electron",
		CoreRate: 0.7,
		Nodes: []Node{
			{Offset: lattice.Coord{}, Rate: 0.7, Role: "core"},
			{Offset: lattice.Coord{X: 1}, Rate: 0.5, Role: "orbital_interface"},
			{Offset: lattice.Coord{X: -1}, Rate: 0.5, Role: "orbital_interface"},
			{Offset: lattice.Coord{Y: 1}, Rate: 0.5, Role: "orbital_interface"},
			{Offset: lattice.Coord{Y: -1}, Rate: 0.5, Role: "orbital_interface"},
			{Offset: lattice.Coord{X: 2}, Rate: 0.3, Role: "orbital_cloud"},
			{Offset: lattice.Coord{X: -2}, Rate: 0.3, Role: "orbital_cloud"},
		},
	},

	// Propagating disturbance: strong core, full face shell, xy-diagonal edge
	// nodes, extended axial fronts.
	"photon": {
		Name:     "photon",
		CoreRate: 1.5,
		Nodes: []Node{
			{Offset: lattice.Coord{}, Rate: 1.5, Role: "core"},

			{Offset: lattice.Coord{X: 1}, Rate: 1.2, Role: "propagation_front"},
			{Offset: lattice.Coord{X: -1}, Rate: 1.2, Role: "propagation_front"},
			{Offset: lattice.Coord{Y: 1}, Rate: 1.2, Role: "propagation_front"},
			{Offset: lattice.Coord{Y: -1}, Rate: 1.2, Role: "propagation_front"},
			{Offset: lattice.Coord{Z: 1}, Rate: 1.2, Role: "propagation_front"},
			{Offset: lattice.Coord{Z: -1}, Rate: 1.2, Role: "propagation_front"},

			{Offset: lattice.Coord{X: 1, Y: 1}, Rate: 1.0, Role: "edge_propagation"},
			{Offset: lattice.Coord{X: -1, Y: -1}, Rate: 1.0, Role: "edge_propagation"},
			{Offset: lattice.Coord{X: 1, Y: -1}, Rate: 1.0, Role: "edge_propagation"},
			{Offset: lattice.Coord{X: -1, Y: 1}, Rate: 1.0, Role: "edge_propagation"},

			{Offset: lattice.Coord{X: 2}, Rate: 0.8, Role: "extended_propagation"},
			{Offset: lattice.Coord{X: -2}, Rate: 0.8, Role: "extended_propagation"},
			{Offset: lattice.Coord{Y: 2}, Rate: 0.8, Role: "extended_propagation"},
			{Offset: lattice.Coord{Y: -2}, Rate: 0.8, Role: "extended_propagation"},
		},
	},

	// Minimal template: one weak mediator node and two distant sparse nodes.
	"neutrino": {
		Name:     "neutrino",
		CoreRate: 0.1,
		Nodes: []Node{
			{Offset: lattice.Coord{}, Rate: 0.1, Role: "mediator"},
			{Offset: lattice.Coord{X: 3}, Rate: 0.05, Role: "sparse"},
			{Offset: lattice.Coord{Y: 3}, Rate: 0.05, Role: "sparse"},
		},
	},
}
