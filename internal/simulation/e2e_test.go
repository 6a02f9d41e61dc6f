package simulation_test

import (
	"context"
	"testing"

	"github.com/nvandessel/tick-loop/internal/identity"
	"github.com/nvandessel/tick-loop/internal/lattice"
	"github.com/nvandessel/tick-loop/internal/scenario"
	"github.com/nvandessel/tick-loop/internal/simulation"
)

// TestCoexistenceThenProbe runs the canonical conflict trial end to end:
// two indistinguishable identities return to the same anchored position,
// coexist passively, and are differentiated only when a probe fires.
//
// Tick 1-2: both identities pass all three gates and register; statuses are
// coexisting; no events fire (co-occupancy alone is never a trigger).
// Tick 3: a scheduled probe measures the position. One event fires, the
// default symbolic mutation appends "_1" to the second occupant's ancestry,
// and the tie is broken: from tick 4 the mutated identity fails the ancestry
// gate against the anchor.
func TestCoexistenceThenProbe(t *testing.T) {
	r := simulation.NewRunner(t)
	center := lattice.Coord{X: 4, Y: 4, Z: 4}

	trial := &scenario.Trial{
		Name: "coexistence-then-probe",
		Anchors: []scenario.AnchorSpec{
			{Position: center, Theta: 0.25, Ancestry: "ABC", DeltaTheta: 0.1},
		},
		Identities: []scenario.IdentitySpec{
			{ModuleTag: "G", Ancestry: "ABC", Theta: 0.25, DeltaTheta: 0.1, Position: center},
			{ModuleTag: "G", Ancestry: "ABC", Theta: 0.25, DeltaTheta: 0.1, Position: center},
		},
		Seeds:  []scenario.FieldSeed{{Position: center, Amount: 200}},
		Probes: []scenario.ProbeSpec{{Tick: 3, Position: center}},
	}

	result := r.Run(trial, nil, 6)

	// Passive phase: registered, coexisting, untouched ancestries, no events.
	simulation.AssertEventCountAt(t, result, 1, 0)
	simulation.AssertEventCountAt(t, result, 2, 0)
	simulation.AssertOccupancyAt(t, result, 2, "4,4,4", 2)
	simulation.AssertStatusAt(t, result, 2, "idn-000001", identity.StatusCoexisting)
	simulation.AssertStatusAt(t, result, 2, "idn-000002", identity.StatusCoexisting)
	simulation.AssertAncestryAt(t, result, 2, "idn-000001", "ABC")
	simulation.AssertAncestryAt(t, result, 2, "idn-000002", "ABC")

	// Probe tick: exactly one event, second occupant mutated.
	simulation.AssertEventCountAt(t, result, 3, 1)
	simulation.AssertAncestryAt(t, result, 3, "idn-000001", "ABC")
	simulation.AssertAncestryAt(t, result, 3, "idn-000002", "ABC_1")

	// After the probe nothing fires again and the mutation sticks.
	simulation.AssertEventCountAt(t, result, 4, 0)
	simulation.AssertEventCountAt(t, result, 5, 0)
	simulation.AssertAncestryAt(t, result, 6, "idn-000002", "ABC_1")

	simulation.AssertPhasesInRange(t, result)
	simulation.AssertEchoNonNegative(t, result)

	// The run is fully persisted.
	meta, err := result.Store.GetRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if meta == nil || meta.TickCount != 6 {
		t.Fatalf("persisted run = %+v, want 6 ticks", meta)
	}
	if meta.Name != "coexistence-then-probe" {
		t.Errorf("run name = %q", meta.Name)
	}
}

// TestOneShotVelocityReachesAnchor launches an identity two cells from an
// anchored position with an initial velocity. The displacement fires exactly
// once at its first tick, after which the identity returns and stays put.
func TestOneShotVelocityReachesAnchor(t *testing.T) {
	r := simulation.NewRunner(t)
	target := lattice.Coord{X: 4, Y: 4, Z: 4}
	velocity := lattice.Coord{X: 2}

	trial := &scenario.Trial{
		Name: "one-shot-velocity",
		Anchors: []scenario.AnchorSpec{
			{Position: target, Theta: 0.25, Ancestry: "ph", DeltaTheta: 0.1},
		},
		Identities: []scenario.IdentitySpec{
			{ModuleTag: "P", Ancestry: "ph", Theta: 0.25, DeltaTheta: 0.1,
				Position: lattice.Coord{X: 2, Y: 4, Z: 4}, Velocity: &velocity},
		},
		Seeds: []scenario.FieldSeed{{Position: target, Amount: 200}},
	}

	result := r.Run(trial, nil, 4)

	// The identity arrives and returns on tick 1.
	st := result.History[0].Identities[0]
	if st.Position != target {
		t.Fatalf("tick 1 position = %v, want %v", st.Position, target)
	}
	simulation.AssertStatusAt(t, result, 1, "idn-000001", identity.StatusComplete)

	// No further motion: the velocity was one-shot.
	for tick := 2; tick <= 4; tick++ {
		st := result.History[tick-1].Identities[0]
		if st.Position != target {
			t.Errorf("tick %d position = %v, identity drifted", tick, st.Position)
		}
	}
	simulation.AssertNoEvents(t, result)
}

// TestPhaseMismatchNeverReturns holds an identity a quarter-cycle off its
// anchor's rhythm with the same advancement rate: the offset persists, so
// the identity stays pending for the whole run no matter how strong the echo.
func TestPhaseMismatchNeverReturns(t *testing.T) {
	r := simulation.NewRunner(t)
	center := lattice.Coord{X: 4, Y: 4, Z: 4}

	trial := &scenario.Trial{
		Name: "phase-mismatch",
		Anchors: []scenario.AnchorSpec{
			{Position: center, Theta: 0.25, Ancestry: "ABC", DeltaTheta: 0.1},
		},
		Identities: []scenario.IdentitySpec{
			{ModuleTag: "G", Ancestry: "ABC", Theta: 0.5, DeltaTheta: 0.1, Position: center},
		},
		Seeds: []scenario.FieldSeed{{Position: center, Amount: 5000}},
	}

	result := r.Run(trial, nil, 12)

	for tick := 1; tick <= 12; tick++ {
		simulation.AssertStatusAt(t, result, tick, "idn-000001", identity.StatusPending)
		simulation.AssertOccupancyAt(t, result, tick, "4,4,4", 0)
	}
	simulation.AssertPhasesInRange(t, result)
}
