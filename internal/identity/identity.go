// Package identity implements the mobile entities of the simulation: timing
// patterns that attempt periodic re-synchronization with anchors. Identities
// carry a phase, a symbolic ancestry string, a return status, and an
// append-only mutation history sufficient to reconstruct any prior ancestry
// value by replay.
package identity

import (
	"fmt"
	"math"

	"github.com/nvandessel/tick-loop/internal/lattice"
)

// Status is an identity's return state.
type Status string

const (
	// StatusPending means the identity has not yet completed a return.
	StatusPending Status = "pending"
	// StatusComplete means the identity returned and holds its anchor's rhythm.
	StatusComplete Status = "complete"
	// StatusCoexisting means the identity shares its position with at least
	// one other registered identity.
	StatusCoexisting Status = "coexisting"
)

// MutationKind labels an entry in the mutation history.
type MutationKind string

const (
	// MutationAncestryAppend appended a distinguishing tag to the ancestry.
	MutationAncestryAppend MutationKind = "ancestry_append"
	// MutationAncestryReplace replaced the ancestry wholesale (reformation
	// locks ancestry to the anchor's value).
	MutationAncestryReplace MutationKind = "ancestry_replace"
	// MutationTagSuffix appended a suffix to the module tag, leaving the
	// ancestry untouched.
	MutationTagSuffix MutationKind = "tag_suffix"
	// MutationPhaseShift advanced the phase by a fixed offset.
	MutationPhaseShift MutationKind = "phase_shift"
)

// MutationRecord is one entry of the append-only mutation log. Before/After
// hold the full value, not a diff, so any prior state is reconstructible.
type MutationRecord struct {
	Tick    int          `json:"tick"`
	Kind    MutationKind `json:"kind"`
	Before  string       `json:"before"`
	After   string       `json:"after"`
	Tag     string       `json:"tag,omitempty"`
	EventID string       `json:"event_id,omitempty"` // owning detection event, if any
}

// Identity is a single timing pattern on the lattice.
type Identity struct {
	ID        string        `json:"id"`
	ModuleTag string        `json:"module_tag"`
	Ancestry  string        `json:"ancestry"`
	Theta     float64       `json:"theta"`
	Delta     float64       `json:"delta_theta"`
	Position  lattice.Coord `json:"position"`
	Status    Status        `json:"status"`

	// DetectionActive marks identities whose arrival at an occupied position
	// triggers a detection event (active detection signature).
	DetectionActive bool `json:"detection_active,omitempty"`

	// CoexistingWith lists the other identity ids registered at this position,
	// in registration order. Maintained by the engine.
	CoexistingWith []string `json:"coexisting_with,omitempty"`

	// pendingDisplacement is the one-shot offset applied at the start of the
	// identity's first tick, then discarded. All later motion must emerge from
	// the return rules; no velocity is persisted.
	pendingDisplacement *lattice.Coord

	CreationTick int  `json:"creation_tick"`
	TickMemory   int  `json:"tick_memory"`
	Mutated      bool `json:"mutated"`

	History []MutationRecord `json:"mutation_history,omitempty"`
}

// AdvancePhase advances theta by the identity's delta, mod 1, and bumps the
// tick memory.
func (id *Identity) AdvancePhase() {
	id.Theta = wrapPhase(id.Theta + id.Delta)
	id.TickMemory++
}

// SetDisplacement arms the one-shot displacement. It may only be set before
// the identity's first tick.
func (id *Identity) SetDisplacement(d lattice.Coord) {
	disp := d
	id.pendingDisplacement = &disp
}

// TakeDisplacement returns the armed displacement and discards it. The second
// return is false when none is armed.
func (id *Identity) TakeDisplacement() (lattice.Coord, bool) {
	if id.pendingDisplacement == nil {
		return lattice.Coord{}, false
	}
	d := *id.pendingDisplacement
	id.pendingDisplacement = nil
	return d, true
}

// ApplyAncestryAppend appends tag to the ancestry and records the mutation.
func (id *Identity) ApplyAncestryAppend(tick int, tag, eventID string) {
	before := id.Ancestry
	id.Ancestry += tag
	id.record(MutationRecord{
		Tick: tick, Kind: MutationAncestryAppend,
		Before: before, After: id.Ancestry, Tag: tag, EventID: eventID,
	})
}

// ApplyAncestryReplace replaces the ancestry and records the mutation.
func (id *Identity) ApplyAncestryReplace(tick int, ancestry, eventID string) {
	if id.Ancestry == ancestry {
		return
	}
	before := id.Ancestry
	id.Ancestry = ancestry
	id.record(MutationRecord{
		Tick: tick, Kind: MutationAncestryReplace,
		Before: before, After: id.Ancestry, EventID: eventID,
	})
}

// ApplyTagSuffix appends suffix to the module tag and records the mutation.
func (id *Identity) ApplyTagSuffix(tick int, suffix, eventID string) {
	before := id.ModuleTag
	id.ModuleTag += suffix
	id.record(MutationRecord{
		Tick: tick, Kind: MutationTagSuffix,
		Before: before, After: id.ModuleTag, Tag: suffix, EventID: eventID,
	})
}

// ApplyPhaseShift advances theta by offset mod 1 and records the mutation.
// Before/After hold the formatted phase values.
func (id *Identity) ApplyPhaseShift(tick int, offset float64, eventID string) {
	before := id.Theta
	id.Theta = wrapPhase(id.Theta + offset)
	id.record(MutationRecord{
		Tick: tick, Kind: MutationPhaseShift,
		Before: formatPhase(before), After: formatPhase(id.Theta), EventID: eventID,
	})
}

func (id *Identity) record(rec MutationRecord) {
	id.History = append(id.History, rec)
	id.Mutated = true
}

// AncestryAt replays the mutation history and returns the ancestry value as of
// the end of the given tick. Records after that tick are ignored.
func (id *Identity) AncestryAt(tick int) string {
	ancestry := ""
	seeded := false
	for _, rec := range id.History {
		if rec.Kind != MutationAncestryAppend && rec.Kind != MutationAncestryReplace {
			continue
		}
		if !seeded {
			ancestry = rec.Before
			seeded = true
		}
		if rec.Tick > tick {
			return ancestry
		}
		ancestry = rec.After
	}
	if !seeded {
		return id.Ancestry
	}
	return ancestry
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x, 1.0)
	if x < 0 {
		x += 1.0
	}
	return x
}

func formatPhase(x float64) string {
	return fmt.Sprintf("%.6f", x)
}
