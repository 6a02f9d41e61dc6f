// Package engine implements the tick scheduler: the single owner of all
// mutable simulation state, driving every component once per tick in a fixed
// order and emitting an immutable snapshot at the end of each tick.
//
// Ticks are strictly sequential. Within a tick every sub-step is applied to
// the whole population before the next sub-step begins, and both the
// reinforcement field and the return evaluation follow a read-everything-
// then-write discipline, so results are fully deterministic.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nvandessel/tick-loop/internal/anchor"
	"github.com/nvandessel/tick-loop/internal/coexist"
	"github.com/nvandessel/tick-loop/internal/config"
	"github.com/nvandessel/tick-loop/internal/detection"
	"github.com/nvandessel/tick-loop/internal/field"
	"github.com/nvandessel/tick-loop/internal/identity"
	"github.com/nvandessel/tick-loop/internal/lattice"
	"github.com/nvandessel/tick-loop/internal/snapshot"
)

// Evaluation reasons reported in tick snapshots.
const (
	ReasonOK               = "ok"
	ReasonNoAnchor         = "no_anchor"
	ReasonPhaseMismatch    = "phase_mismatch"
	ReasonAncestryMismatch = "ancestry_mismatch"
	ReasonEchoBelowMin     = "echo_below_min"
)

// Engine is one simulation instance. It owns the field, the anchor table, the
// identity store, the coexistence registry, and the detection engine; none of
// them are shared between instances.
type Engine struct {
	cfg    *config.RunConfig
	bounds lattice.Bounds
	conn   lattice.Connectivity
	log    *slog.Logger

	field    *field.Field
	anchors  *anchor.Table
	ids      *identity.Store
	registry *coexist.Registry
	det      *detection.Engine

	tick          int
	pendingProbes []lattice.Coord
}

// New constructs an engine from a validated configuration. Configuration
// errors fail here, before any tick runs.
func New(cfg *config.RunConfig, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	bounds := cfg.Lattice.Bounds()
	conn := lattice.Connectivity(cfg.Lattice.Connectivity)

	f, err := field.New(bounds, conn, cfg.Echo.HybridLocalWeight, cfg.Echo.HybridNeighborWeight)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	det, err := detection.NewEngine(cfg.Detection.Resolution, cfg.Detection.PhaseSeparationOffset)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		bounds:   bounds,
		conn:     conn,
		log:      log,
		field:    f,
		anchors:  anchor.NewTable(),
		ids:      identity.NewStore(),
		registry: coexist.NewRegistry(),
		det:      det,
	}, nil
}

// Tick returns the number of completed ticks.
func (e *Engine) Tick() int { return e.tick }

// Field exposes the reinforcement field for seeding and inspection.
func (e *Engine) Field() *field.Field { return e.field }

// Identities exposes the identity store for inspection.
func (e *Engine) Identities() *identity.Store { return e.ids }

// Registry exposes the coexistence registry for inspection.
func (e *Engine) Registry() *coexist.Registry { return e.registry }

// PlaceAnchor installs an anchor before the run starts. Anchors are immutable
// once the first tick has executed.
func (e *Engine) PlaceAnchor(c lattice.Coord, theta float64, ancestry string, deltaTheta float64) error {
	if e.tick > 0 {
		return fmt.Errorf("engine: anchors are fixed once the run has started (tick %d)", e.tick)
	}
	if !e.bounds.Contains(c) {
		return fmt.Errorf("engine: anchor position %v outside lattice %+v", c, e.bounds)
	}
	e.anchors.Place(c, theta, ancestry, deltaTheta)
	return nil
}

// AddIdentity inserts an identity between ticks (or before the run starts).
// Any armed one-shot displacement fires at the start of the identity's first
// tick. The identity is accounted for in every snapshot from that tick on.
func (e *Engine) AddIdentity(id *identity.Identity) (*identity.Identity, error) {
	if !e.bounds.Contains(id.Position) {
		return nil, fmt.Errorf("engine: identity position %v outside lattice %+v", id.Position, e.bounds)
	}
	if id.Delta < 0 || id.Delta >= 1 {
		return nil, fmt.Errorf("engine: delta theta must be in [0, 1), got %v", id.Delta)
	}
	id.CreationTick = e.tick
	added, err := e.ids.Add(id)
	if err != nil {
		return nil, err
	}
	e.log.Debug("identity added", "id", added.ID, "position", added.Position.String(), "tick", e.tick)
	return added, nil
}

// RemoveIdentity removes an identity between ticks (annihilation and decay
// products are handled by outer layers through this hook). It deregisters the
// identity and re-derives the statuses of any remaining occupants.
func (e *Engine) RemoveIdentity(idStr string) bool {
	id := e.ids.Get(idStr)
	if id == nil {
		return false
	}
	if e.registry.Deregister(id.Position, idStr) {
		e.refreshOccupancy(id.Position)
	}
	e.ids.Remove(idStr)
	e.log.Debug("identity removed", "id", idStr, "tick", e.tick)
	return true
}

// QueueProbe schedules an explicit measurement at c for the next tick's
// detection step. Probing an empty or singly-occupied position is a no-op.
func (e *Engine) QueueProbe(c lattice.Coord) error {
	if !e.bounds.Contains(c) {
		return fmt.Errorf("engine: probe position %v outside lattice %+v", c, e.bounds)
	}
	e.pendingProbes = append(e.pendingProbes, c)
	return nil
}

// Step executes one complete tick and returns its snapshot. The fixed
// sub-step order is: phase advancement, field decay, one-shot displacement,
// return evaluation, detection, field diffusion, snapshot.
func (e *Engine) Step() (snapshot.Tick, error) {
	e.tick++

	// 1. Advance every identity's and anchor's phase.
	for _, id := range e.ids.All() {
		id.AdvancePhase()
	}
	e.anchors.AdvancePhases()

	// 2. Field decay, whole field at once.
	e.field.Decay(e.cfg.Echo.DecayFactor)

	// 3. One-shot displacement for identities created last interval.
	e.applyDisplacements()

	// 4. Return evaluation: evaluate the whole population against pre-step
	// state, then apply, so no reformation influences another identity's
	// gates within the same tick.
	evals := e.evaluateReturns()
	e.applyReturns(evals)

	// 5. Detection events: create and resolve, synchronously, before the
	// next tick's return evaluation can run.
	events, err := e.processDetections()
	if err != nil {
		return snapshot.Tick{}, err
	}

	// 6. Field diffusion.
	e.field.Diffuse(e.cfg.Echo.DiffusionAlpha)

	// 7. Snapshot and invariant check.
	snap := e.capture(evals, events)
	if err := e.checkInvariants(&snap); err != nil {
		return snap, err
	}

	e.log.Debug("tick complete",
		"tick", e.tick,
		"identities", e.ids.Len(),
		"events", len(events),
		"echo_total", snap.Echo.Total,
	)
	return snap, nil
}

// Run executes ticks until the configured budget is exhausted or ctx is
// cancelled. Cancellation is observed between ticks only: the unit of
// interruption is a whole tick.
func (e *Engine) Run(ctx context.Context) ([]snapshot.Tick, error) {
	history := make([]snapshot.Tick, 0, e.cfg.TickBudget)
	for e.tick < e.cfg.TickBudget {
		if err := ctx.Err(); err != nil {
			return history, err
		}
		snap, err := e.Step()
		if err != nil {
			return history, err
		}
		history = append(history, snap)
	}
	return history, nil
}

// applyDisplacements fires armed one-shot displacements. The offset is applied
// exactly once and discarded; positions are clamped to the lattice edge.
func (e *Engine) applyDisplacements() {
	for _, id := range e.ids.All() {
		d, ok := id.TakeDisplacement()
		if !ok {
			continue
		}
		target := id.Position.Add(d)
		clamped := e.clamp(target)
		if clamped != target {
			e.log.Debug("displacement clamped to lattice edge", "id", id.ID, "target", target.String())
		}
		id.Position = clamped
	}
}

func (e *Engine) clamp(c lattice.Coord) lattice.Coord {
	clampAxis := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}
	return lattice.Coord{
		X: clampAxis(c.X, e.bounds.Lx),
		Y: clampAxis(c.Y, e.bounds.Ly),
		Z: clampAxis(c.Z, e.bounds.Lz),
	}
}

// evaluateReturns runs the three-gate eligibility check for every identity
// against the current (pre-application) state.
func (e *Engine) evaluateReturns() []snapshot.ReturnEvaluation {
	evals := make([]snapshot.ReturnEvaluation, 0, e.ids.Len())
	for _, id := range e.ids.All() {
		evals = append(evals, e.evaluateReturn(id))
	}
	return evals
}

func (e *Engine) evaluateReturn(id *identity.Identity) snapshot.ReturnEvaluation {
	a := e.anchors.At(id.Position)
	if a == nil {
		return snapshot.ReturnEvaluation{ID: id.ID, Reason: ReasonNoAnchor}
	}

	phaseDiff := anchor.PhaseDistance(id.Theta, a.Theta)
	if phaseDiff > e.cfg.Phase.Tolerance {
		return snapshot.ReturnEvaluation{ID: id.ID, Reason: ReasonPhaseMismatch, PhaseDiff: phaseDiff}
	}

	if !identity.MatchAncestry(id.Ancestry, a.Ancestry, e.tick, identity.MatchOptions{
		Required:           e.cfg.Ancestry.Required,
		SmoothingEnabled:   e.cfg.Ancestry.SmoothingEnabled,
		SmoothingTick:      e.cfg.Ancestry.SmoothingTick,
		SmoothingThreshold: e.cfg.Ancestry.SmoothingThreshold,
	}) {
		return snapshot.ReturnEvaluation{ID: id.ID, Reason: ReasonAncestryMismatch, PhaseDiff: phaseDiff}
	}

	rhoHybrid := e.field.Hybrid(id.Position)
	if rhoHybrid < e.cfg.Echo.RhoMin {
		return snapshot.ReturnEvaluation{ID: id.ID, Reason: ReasonEchoBelowMin, PhaseDiff: phaseDiff, RhoHybrid: rhoHybrid}
	}

	return snapshot.ReturnEvaluation{ID: id.ID, Allowed: true, Reason: ReasonOK, PhaseDiff: phaseDiff, RhoHybrid: rhoHybrid}
}

// applyReturns executes reformation or coexistence registration for every
// identity that passed the gates, in store order.
func (e *Engine) applyReturns(evals []snapshot.ReturnEvaluation) {
	for _, ev := range evals {
		if !ev.Allowed {
			continue
		}
		id := e.ids.Get(ev.ID)
		a := e.anchors.At(id.Position)

		// Lock rhythm and ancestry to the anchor. The ancestry lock goes
		// through the mutation log so replay covers reformation too.
		id.Theta = a.Theta
		id.ApplyAncestryReplace(e.tick, a.Ancestry, "")

		e.registry.Register(id.Position, id.ID)
		e.refreshOccupancy(id.Position)
		e.field.Reinforce(id.Position, e.cfg.Echo.ReinforceAmount)
	}
}

// refreshOccupancy re-derives statuses and coexisting-with lists for every
// occupant of c after the registry changed there.
func (e *Engine) refreshOccupancy(c lattice.Coord) {
	occ := e.registry.Occupants(c)
	for _, idStr := range occ {
		id := e.ids.Get(idStr)
		if id == nil {
			continue
		}
		others := make([]string, 0, len(occ)-1)
		for _, other := range occ {
			if other != idStr {
				others = append(others, other)
			}
		}
		id.CoexistingWith = others
		if len(occ) >= 2 {
			id.Status = identity.StatusCoexisting
		} else {
			id.Status = identity.StatusComplete
		}
	}
}

// processDetections creates and resolves detection events for this tick.
// Candidates are queued probes plus positions where an occupant carries an
// active detection signature. Passive co-occupancy alone never fires.
func (e *Engine) processDetections() ([]detection.Event, error) {
	if !e.cfg.Detection.Enabled {
		e.pendingProbes = nil
		return nil, nil
	}

	type candidate struct {
		pos          lattice.Coord
		trigger      detection.TriggerKind
		triggeringID string
	}
	var candidates []candidate
	seen := make(map[lattice.Coord]bool)

	// Probes first, in queue order. At most one event per position per tick.
	for _, c := range e.pendingProbes {
		if seen[c] {
			continue
		}
		seen[c] = true
		candidates = append(candidates, candidate{pos: c, trigger: detection.TriggerProbe})
	}
	e.pendingProbes = nil

	// Collision triggers: occupied positions holding an active signature,
	// in sorted coordinate order for determinism.
	positions := e.registry.Positions()
	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	for _, c := range positions {
		if seen[c] {
			continue
		}
		if trigger := e.activeTriggerAt(c); trigger != "" {
			seen[c] = true
			candidates = append(candidates, candidate{pos: c, trigger: detection.TriggerCollision, triggeringID: trigger})
		}
	}

	var events []detection.Event
	for _, cand := range candidates {
		affected := e.occupantIdentities(cand.pos)
		ev := e.det.CreateEvent(e.tick, cand.pos, cand.trigger, cand.triggeringID, affected)
		if ev == nil {
			continue // fewer than two occupants: no conflict, no event
		}
		if err := e.det.Resolve(ev, affected); err != nil {
			return nil, fmt.Errorf("engine: tick %d: %w", e.tick, err)
		}
		e.log.Debug("detection event resolved",
			"event", ev.ID,
			"position", cand.pos.String(),
			"trigger", string(cand.trigger),
			"affected", len(affected),
		)
		events = append(events, *ev)
	}
	return events, nil
}

// activeTriggerAt returns the id of the first occupant at c with an active
// detection signature, or "" when co-occupancy there is purely passive.
func (e *Engine) activeTriggerAt(c lattice.Coord) string {
	occ := e.registry.Occupants(c)
	if len(occ) < 2 {
		return ""
	}
	for _, idStr := range occ {
		if id := e.ids.Get(idStr); id != nil && id.DetectionActive {
			return id.ID
		}
	}
	return ""
}

// occupantIdentities resolves the registry's occupant ids at c, preserving
// registration order.
func (e *Engine) occupantIdentities(c lattice.Coord) []*identity.Identity {
	occ := e.registry.Occupants(c)
	out := make([]*identity.Identity, 0, len(occ))
	for _, idStr := range occ {
		if id := e.ids.Get(idStr); id != nil {
			out = append(out, id)
		}
	}
	return out
}

// capture builds this tick's immutable snapshot.
func (e *Engine) capture(evals []snapshot.ReturnEvaluation, events []detection.Event) snapshot.Tick {
	ids := e.ids.All()
	states := make([]snapshot.IdentityState, 0, len(ids))
	for _, id := range ids {
		coexisting := make([]string, len(id.CoexistingWith))
		copy(coexisting, id.CoexistingWith)
		states = append(states, snapshot.IdentityState{
			ID:             id.ID,
			ModuleTag:      id.ModuleTag,
			Ancestry:       id.Ancestry,
			Theta:          id.Theta,
			Position:       id.Position,
			Status:         id.Status,
			Mutated:        id.Mutated,
			TickMemory:     id.TickMemory,
			CoexistingWith: coexisting,
		})
	}

	snap := snapshot.Tick{
		Tick:        e.tick,
		Identities:  states,
		Evaluations: evals,
		Events:      events,
		Registry:    e.registry.Contents(),
		Echo: snapshot.EchoStats{
			Total: e.field.Total(),
			Max:   e.field.Max(),
			Min:   e.field.MinValue(),
		},
	}
	if e.cfg.CaptureField {
		snap.FieldValues = e.field.Values()
	}
	return snap
}

// checkInvariants verifies the structural invariants after a tick. A
// violation is a defect, not a recoverable condition: the run aborts and the
// snapshot carries the full diagnostic state.
func (e *Engine) checkInvariants(snap *snapshot.Tick) error {
	for _, id := range e.ids.All() {
		if id.Theta < 0 || id.Theta >= 1 {
			return fmt.Errorf("engine: invariant violation at tick %d: identity %s theta %v outside [0,1)", e.tick, id.ID, id.Theta)
		}
		occ := e.registry.Occupants(id.Position)
		registered := e.registry.Contains(id.Position, id.ID)
		coexisting := registered && len(occ) >= 2
		if (id.Status == identity.StatusCoexisting) != coexisting {
			return fmt.Errorf("engine: invariant violation at tick %d: identity %s status %q but occupancy at %v is %d (registered=%t)",
				e.tick, id.ID, id.Status, id.Position, len(occ), registered)
		}
	}
	if min := e.field.MinValue(); min < 0 {
		return fmt.Errorf("engine: invariant violation at tick %d: negative reinforcement %v", e.tick, min)
	}
	return nil
}
