package pattern

import (
	"testing"

	"github.com/nvandessel/tick-loop/internal/lattice"
)

func TestGet(t *testing.T) {
	for _, name := range []string{"proton", "electron", "photon", "neutrino"} {
		p, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		if p.Name != name {
			t.Errorf("Get(%q).Name = %q", name, p.Name)
		}
		if len(p.Nodes) == 0 {
			t.Errorf("pattern %q has no nodes", name)
		}
		if p.Nodes[0].Offset != (lattice.Coord{}) {
			t.Errorf("pattern %q first node offset = %v, want center", name, p.Nodes[0].Offset)
		}
	}

	if _, err := Get("muon"); err == nil {
		t.Error("Get accepted unknown pattern")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	want := []string{"electron", "neutrino", "photon", "proton"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestNodeCounts(t *testing.T) {
	tests := []struct {
		name  string
		nodes int
	}{
		{"proton", 23},
		{"electron", 7},
		{"photon", 15},
		{"neutrino", 3},
	}
	for _, tt := range tests {
		p, err := Get(tt.name)
		if err != nil {
			t.Fatalf("Get(%q): %v", tt.name, err)
		}
		if len(p.Nodes) != tt.nodes {
			t.Errorf("%s nodes = %d, want %d", tt.name, len(p.Nodes), tt.nodes)
		}
	}
}

func TestPlaceInterior(t *testing.T) {
	b := lattice.Bounds{Lx: 10, Ly: 10, Lz: 10}
	p, _ := Get("electron")

	placements := p.Place(b, lattice.Coord{X: 5, Y: 5, Z: 5})
	if len(placements) != len(p.Nodes) {
		t.Fatalf("interior placement dropped nodes: %d of %d", len(placements), len(p.Nodes))
	}
	if placements[0].Position != (lattice.Coord{X: 5, Y: 5, Z: 5}) {
		t.Errorf("core placed at %v", placements[0].Position)
	}
	if placements[0].Rate != 0.7 {
		t.Errorf("core rate = %v", placements[0].Rate)
	}
}

func TestPlaceClipsAtEdge(t *testing.T) {
	b := lattice.Bounds{Lx: 10, Ly: 10, Lz: 10}
	p, _ := Get("electron")

	// Center at the origin corner: -x and -y nodes fall outside.
	placements := p.Place(b, lattice.Coord{})
	for _, pl := range placements {
		if !b.Contains(pl.Position) {
			t.Fatalf("placement outside lattice: %v", pl.Position)
		}
	}
	if len(placements) >= len(p.Nodes) {
		t.Errorf("corner placement kept all %d nodes, expected clipping", len(placements))
	}
}
