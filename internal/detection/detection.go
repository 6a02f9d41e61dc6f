// Package detection implements detection-triggered conflict resolution.
//
// Passive co-occupancy of a lattice node is not a conflict: identities overlap
// freely until an information-extracting interaction occurs. When a trigger
// fires at a position holding two or more identities, a detection event is
// created and resolved exactly once, mutating symbolic tags (or phases) so the
// tie is broken permanently without destroying any identity.
package detection

import (
	"errors"
	"fmt"

	"github.com/nvandessel/tick-loop/internal/identity"
	"github.com/nvandessel/tick-loop/internal/lattice"
)

// ErrAlreadyResolved is returned when a resolved event is resolved again.
// Resolution is applied at most once; a second attempt leaves all state
// untouched.
var ErrAlreadyResolved = errors.New("detection: event already resolved")

// TriggerKind identifies what caused a detection event.
type TriggerKind string

const (
	// TriggerProbe is an explicit external measurement queued between ticks.
	TriggerProbe TriggerKind = "probe"
	// TriggerCollision fires when an identity with an active detection
	// signature shares a position with others.
	TriggerCollision TriggerKind = "collision"
	// TriggerAbsorption fires when an absorbing identity arrives at an
	// occupied position.
	TriggerAbsorption TriggerKind = "absorption"
)

// Resolution is the closed set of conflict-resolution policies. Each value has
// an explicit handler; there is no open-ended string dispatch.
type Resolution string

const (
	// ResolutionSymbolicMutation leaves the first identity unchanged and
	// appends a distinguishing "_i" tag to each subsequent identity's
	// ancestry. This is the validated default.
	ResolutionSymbolicMutation Resolution = "symbolic_mutation"
	// ResolutionIdentityRename suffixes the module tag instead of the
	// ancestry.
	ResolutionIdentityRename Resolution = "identity_rename"
	// ResolutionPhaseSeparation advances each subsequent identity's phase by
	// rank times a fixed offset instead of editing symbols.
	ResolutionPhaseSeparation Resolution = "phase_separation"
	// ResolutionCoexistence is a no-op: permanent passive overlap, kept as a
	// comparison baseline.
	ResolutionCoexistence Resolution = "coexistence"
)

// Valid reports whether r is a known policy.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionSymbolicMutation, ResolutionIdentityRename,
		ResolutionPhaseSeparation, ResolutionCoexistence:
		return true
	}
	return false
}

// Event records one detection occurrence. AffectedIDs ordering is the
// registry's registration order and is fixed at creation; Resolution state is
// set exactly once.
type Event struct {
	ID           string                    `json:"id"`
	Tick         int                       `json:"tick"`
	Position     lattice.Coord             `json:"position"`
	Trigger      TriggerKind               `json:"trigger"`
	TriggeringID string                    `json:"triggering_id,omitempty"`
	AffectedIDs  []string                  `json:"affected_ids"`
	Resolution   Resolution                `json:"resolution,omitempty"`
	Resolved     bool                      `json:"resolved"`
	Mutations    []identity.MutationRecord `json:"mutations,omitempty"`
}

// Engine creates and resolves detection events for one simulation instance.
type Engine struct {
	resolution  Resolution
	phaseOffset float64
	seq         int
}

// NewEngine constructs a detection engine with the given default policy.
func NewEngine(resolution Resolution, phaseOffset float64) (*Engine, error) {
	if !resolution.Valid() {
		return nil, fmt.Errorf("detection: unknown resolution policy %q", resolution)
	}
	if phaseOffset < 0 || phaseOffset >= 1 {
		return nil, fmt.Errorf("detection: phase offset must be in [0,1), got %v", phaseOffset)
	}
	return &Engine{resolution: resolution, phaseOffset: phaseOffset}, nil
}

// CreateEvent instantiates an event at position holding the given identities.
// Fewer than two affected identities is a no-op, not an error: the returned
// event is nil. The affected ordering must already be stable (registration
// order); it is captured as-is.
func (e *Engine) CreateEvent(tick int, pos lattice.Coord, trigger TriggerKind, triggeringID string, affected []*identity.Identity) *Event {
	if len(affected) < 2 {
		return nil
	}
	e.seq++
	ids := make([]string, len(affected))
	for i, id := range affected {
		ids[i] = id.ID
	}
	return &Event{
		ID:           fmt.Sprintf("evt-%06d", e.seq),
		Tick:         tick,
		Position:     pos,
		Trigger:      trigger,
		TriggeringID: triggeringID,
		AffectedIDs:  ids,
	}
}

// Resolve applies the engine's policy to the event's affected identities,
// exactly once. A second call returns ErrAlreadyResolved and changes nothing.
// The affected slice must match the event's AffectedIDs ordering; the engine
// verifies it.
func (e *Engine) Resolve(ev *Event, affected []*identity.Identity) error {
	if ev == nil {
		return nil
	}
	if ev.Resolved {
		return ErrAlreadyResolved
	}
	if len(affected) != len(ev.AffectedIDs) {
		return fmt.Errorf("detection: affected set size %d does not match event %s (%d)", len(affected), ev.ID, len(ev.AffectedIDs))
	}
	for i, id := range affected {
		if id.ID != ev.AffectedIDs[i] {
			return fmt.Errorf("detection: affected ordering mismatch for event %s at rank %d", ev.ID, i)
		}
	}

	before := make([]int, len(affected))
	for i, id := range affected {
		before[i] = len(id.History)
	}

	switch e.resolution {
	case ResolutionSymbolicMutation:
		resolveSymbolicMutation(ev, affected)
	case ResolutionIdentityRename:
		resolveIdentityRename(ev, affected)
	case ResolutionPhaseSeparation:
		resolvePhaseSeparation(ev, affected, e.phaseOffset)
	case ResolutionCoexistence:
		// Deliberate no-op baseline.
	}

	for i, id := range affected {
		ev.Mutations = append(ev.Mutations, id.History[before[i]:]...)
	}
	ev.Resolution = e.resolution
	ev.Resolved = true
	return nil
}

// resolveSymbolicMutation appends "_i" to the ancestry of every identity after
// the first, where i is the identity's rank in the ordered affected list.
func resolveSymbolicMutation(ev *Event, affected []*identity.Identity) {
	for i, id := range affected[1:] {
		id.ApplyAncestryAppend(ev.Tick, fmt.Sprintf("_%d", i+1), ev.ID)
	}
}

// resolveIdentityRename suffixes the module tag of every identity after the
// first; ancestries are untouched.
func resolveIdentityRename(ev *Event, affected []*identity.Identity) {
	for i, id := range affected[1:] {
		id.ApplyTagSuffix(ev.Tick, fmt.Sprintf("_%d", i+1), ev.ID)
	}
}

// resolvePhaseSeparation advances each subsequent identity's phase by rank
// times offset, mod 1.
func resolvePhaseSeparation(ev *Event, affected []*identity.Identity, offset float64) {
	for i, id := range affected[1:] {
		id.ApplyPhaseShift(ev.Tick, float64(i+1)*offset, ev.ID)
	}
}
