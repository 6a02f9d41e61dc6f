// Package scenario defines trial files: declarative YAML descriptions of a
// run's initial state (anchors, identities, pattern placements, field seeds)
// plus probes scheduled at specific ticks.
package scenario

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/tick-loop/internal/engine"
	"github.com/nvandessel/tick-loop/internal/identity"
	"github.com/nvandessel/tick-loop/internal/lattice"
	"github.com/nvandessel/tick-loop/internal/pattern"
	"github.com/nvandessel/tick-loop/internal/snapshot"
)

// Trial is one declarative experiment definition.
type Trial struct {
	Name       string         `yaml:"name"`
	Anchors    []AnchorSpec   `yaml:"anchors"`
	Identities []IdentitySpec `yaml:"identities"`
	Patterns   []PatternSpec  `yaml:"patterns"`
	Seeds      []FieldSeed    `yaml:"seeds"`
	Probes     []ProbeSpec    `yaml:"probes"`
}

// AnchorSpec places one anchor before the run starts.
type AnchorSpec struct {
	Position   lattice.Coord `yaml:"position"`
	Theta      float64       `yaml:"theta"`
	Ancestry   string        `yaml:"ancestry"`
	DeltaTheta float64       `yaml:"delta_theta"`
}

// IdentitySpec seeds one identity. Velocity, if set, is a one-shot
// displacement applied at the identity's first tick.
type IdentitySpec struct {
	ModuleTag       string         `yaml:"module_tag"`
	Ancestry        string         `yaml:"ancestry"`
	Theta           float64        `yaml:"theta"`
	DeltaTheta      float64        `yaml:"delta_theta"`
	Position        lattice.Coord  `yaml:"position"`
	Velocity        *lattice.Coord `yaml:"velocity,omitempty"`
	DetectionActive bool           `yaml:"detection_active"`
}

// PatternSpec places a named built-in timing pattern, seeding the
// reinforcement field around Center with Amount scaled by each node's rate.
type PatternSpec struct {
	Name   string        `yaml:"name"`
	Center lattice.Coord `yaml:"center"`
	Amount float64       `yaml:"amount"`
}

// FieldSeed adds raw reinforcement at one position before the run starts.
type FieldSeed struct {
	Position lattice.Coord `yaml:"position"`
	Amount   float64       `yaml:"amount"`
}

// ProbeSpec schedules an explicit measurement for a given tick.
type ProbeSpec struct {
	Tick     int           `yaml:"tick"`
	Position lattice.Coord `yaml:"position"`
}

// Load reads a trial definition from YAML.
func Load(data []byte) (*Trial, error) {
	var t Trial
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("scenario: failed to parse trial: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadFile reads a trial definition from a YAML file.
func LoadFile(path string) (*Trial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: failed to read trial file: %w", err)
	}
	return Load(data)
}

// Validate checks the trial for structural problems that don't depend on the
// lattice dimensions. Position bounds are checked on Apply.
func (t *Trial) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("scenario: trial name is required")
	}
	for i, a := range t.Anchors {
		if a.Theta < 0 || a.Theta >= 1 {
			return fmt.Errorf("scenario: anchor %d theta %v outside [0, 1)", i, a.Theta)
		}
	}
	for i, id := range t.Identities {
		if id.Theta < 0 || id.Theta >= 1 {
			return fmt.Errorf("scenario: identity %d theta %v outside [0, 1)", i, id.Theta)
		}
		if id.DeltaTheta < 0 || id.DeltaTheta >= 1 {
			return fmt.Errorf("scenario: identity %d delta_theta %v outside [0, 1)", i, id.DeltaTheta)
		}
	}
	for i, p := range t.Patterns {
		if _, err := pattern.Get(p.Name); err != nil {
			return fmt.Errorf("scenario: pattern %d: %w", i, err)
		}
		if p.Amount < 0 {
			return fmt.Errorf("scenario: pattern %d amount %v is negative", i, p.Amount)
		}
	}
	for i, s := range t.Seeds {
		if s.Amount < 0 {
			return fmt.Errorf("scenario: seed %d amount %v is negative", i, s.Amount)
		}
	}
	for i, p := range t.Probes {
		if p.Tick < 1 {
			return fmt.Errorf("scenario: probe %d scheduled for tick %d, ticks start at 1", i, p.Tick)
		}
	}
	return nil
}

// Apply installs the trial's initial state into a fresh engine: anchors,
// field seeds, pattern placements, identities. Probes are applied during Run.
func (t *Trial) Apply(e *engine.Engine) error {
	if e.Tick() != 0 {
		return fmt.Errorf("scenario: engine has already run %d ticks", e.Tick())
	}

	for i, a := range t.Anchors {
		if err := e.PlaceAnchor(a.Position, a.Theta, a.Ancestry, a.DeltaTheta); err != nil {
			return fmt.Errorf("scenario: anchor %d: %w", i, err)
		}
	}

	for _, s := range t.Seeds {
		e.Field().Reinforce(s.Position, s.Amount)
	}

	bounds := e.Field().Bounds()
	for i, spec := range t.Patterns {
		p, err := pattern.Get(spec.Name)
		if err != nil {
			return fmt.Errorf("scenario: pattern %d: %w", i, err)
		}
		for _, pl := range p.Place(bounds, spec.Center) {
			e.Field().Reinforce(pl.Position, spec.Amount*pl.Rate)
		}
	}

	for i, spec := range t.Identities {
		id := &identity.Identity{
			ModuleTag:       spec.ModuleTag,
			Ancestry:        spec.Ancestry,
			Theta:           spec.Theta,
			Delta:           spec.DeltaTheta,
			Position:        spec.Position,
			DetectionActive: spec.DetectionActive,
		}
		if spec.Velocity != nil {
			id.SetDisplacement(*spec.Velocity)
		}
		if _, err := e.AddIdentity(id); err != nil {
			return fmt.Errorf("scenario: identity %d: %w", i, err)
		}
	}

	return nil
}

// Run executes the trial against the engine through its configured tick
// budget, queueing scheduled probes for the tick they name. The engine must
// be fresh; Apply is called here.
func (t *Trial) Run(ctx context.Context, e *engine.Engine, budget int) ([]snapshot.Tick, error) {
	if err := t.Apply(e); err != nil {
		return nil, err
	}

	probesByTick := make(map[int][]lattice.Coord)
	for _, p := range t.Probes {
		probesByTick[p.Tick] = append(probesByTick[p.Tick], p.Position)
	}

	history := make([]snapshot.Tick, 0, budget)
	for tick := 1; tick <= budget; tick++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}
		for _, pos := range probesByTick[tick] {
			if err := e.QueueProbe(pos); err != nil {
				return history, fmt.Errorf("scenario: probe at tick %d: %w", tick, err)
			}
		}
		snap, err := e.Step()
		if err != nil {
			return history, err
		}
		history = append(history, snap)
	}
	return history, nil
}
