package detection

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/tick-loop/internal/identity"
	"github.com/nvandessel/tick-loop/internal/lattice"
)

func newPair(t *testing.T) []*identity.Identity {
	t.Helper()
	return []*identity.Identity{
		{ID: "idn-000001", ModuleTag: "G", Ancestry: "ABC", Theta: 0.25},
		{ID: "idn-000002", ModuleTag: "G", Ancestry: "ABC", Theta: 0.25},
	}
}

func mustEngine(t *testing.T, r Resolution) *Engine {
	t.Helper()
	e, err := NewEngine(r, 0.05)
	if err != nil {
		t.Fatalf("NewEngine(%s): %v", r, err)
	}
	return e
}

func TestSymbolicMutation(t *testing.T) {
	e := mustEngine(t, ResolutionSymbolicMutation)
	pair := newPair(t)

	ev := e.CreateEvent(7, lattice.Coord{X: 1}, TriggerProbe, "", pair)
	if ev == nil {
		t.Fatal("CreateEvent returned nil for two identities")
	}
	if err := e.Resolve(ev, pair); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if pair[0].Ancestry != "ABC" {
		t.Errorf("first identity ancestry = %q, want ABC", pair[0].Ancestry)
	}
	if pair[1].Ancestry != "ABC_1" {
		t.Errorf("second identity ancestry = %q, want ABC_1", pair[1].Ancestry)
	}
	// Phases are untouched under symbolic mutation.
	if pair[0].Theta != 0.25 || pair[1].Theta != 0.25 {
		t.Errorf("phases changed: %v, %v", pair[0].Theta, pair[1].Theta)
	}
	if !ev.Resolved || ev.Resolution != ResolutionSymbolicMutation {
		t.Errorf("event not marked resolved: %+v", ev)
	}
	if len(ev.Mutations) != 1 || ev.Mutations[0].EventID != ev.ID {
		t.Errorf("event mutations = %+v", ev.Mutations)
	}
}

func TestSymbolicMutationThreeWay(t *testing.T) {
	e := mustEngine(t, ResolutionSymbolicMutation)
	trio := append(newPair(t), &identity.Identity{ID: "idn-000003", Ancestry: "ABC"})

	ev := e.CreateEvent(3, lattice.Coord{}, TriggerCollision, "idn-000003", trio)
	if err := e.Resolve(ev, trio); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"ABC", "ABC_1", "ABC_2"}
	for i, id := range trio {
		if id.Ancestry != want[i] {
			t.Errorf("identity %d ancestry = %q, want %q", i, id.Ancestry, want[i])
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	e := mustEngine(t, ResolutionSymbolicMutation)
	pair := newPair(t)

	ev := e.CreateEvent(1, lattice.Coord{}, TriggerProbe, "", pair)
	if err := e.Resolve(ev, pair); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	afterFirst := []string{pair[0].Ancestry, pair[1].Ancestry}
	histLen := len(pair[1].History)

	err := e.Resolve(ev, pair)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second Resolve error = %v, want ErrAlreadyResolved", err)
	}
	if pair[0].Ancestry != afterFirst[0] || pair[1].Ancestry != afterFirst[1] {
		t.Error("second Resolve changed identity state")
	}
	if len(pair[1].History) != histLen {
		t.Error("second Resolve appended history")
	}
}

func TestIdentityRename(t *testing.T) {
	e := mustEngine(t, ResolutionIdentityRename)
	pair := newPair(t)

	ev := e.CreateEvent(2, lattice.Coord{}, TriggerProbe, "", pair)
	if err := e.Resolve(ev, pair); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pair[1].ModuleTag != "G_1" {
		t.Errorf("module tag = %q, want G_1", pair[1].ModuleTag)
	}
	if pair[1].Ancestry != "ABC" {
		t.Errorf("rename touched ancestry: %q", pair[1].Ancestry)
	}
}

func TestPhaseSeparation(t *testing.T) {
	e := mustEngine(t, ResolutionPhaseSeparation)
	trio := append(newPair(t), &identity.Identity{ID: "idn-000003", Ancestry: "ABC", Theta: 0.25})

	ev := e.CreateEvent(2, lattice.Coord{}, TriggerProbe, "", trio)
	if err := e.Resolve(ev, trio); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if trio[0].Theta != 0.25 {
		t.Errorf("first identity phase moved: %v", trio[0].Theta)
	}
	if math.Abs(trio[1].Theta-0.30) > 1e-9 {
		t.Errorf("second identity phase = %v, want 0.30", trio[1].Theta)
	}
	if math.Abs(trio[2].Theta-0.35) > 1e-9 {
		t.Errorf("third identity phase = %v, want 0.35", trio[2].Theta)
	}
	if trio[1].Ancestry != "ABC" {
		t.Errorf("phase separation touched ancestry: %q", trio[1].Ancestry)
	}
}

func TestCoexistenceIsNoop(t *testing.T) {
	e := mustEngine(t, ResolutionCoexistence)
	pair := newPair(t)

	ev := e.CreateEvent(2, lattice.Coord{}, TriggerProbe, "", pair)
	if err := e.Resolve(ev, pair); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pair[0].Ancestry != "ABC" || pair[1].Ancestry != "ABC" {
		t.Error("coexistence baseline mutated ancestry")
	}
	if !ev.Resolved {
		t.Error("coexistence event not marked resolved")
	}
	if len(ev.Mutations) != 0 {
		t.Errorf("coexistence recorded mutations: %+v", ev.Mutations)
	}
}

func TestCreateEventUnderTwoAffected(t *testing.T) {
	e := mustEngine(t, ResolutionSymbolicMutation)
	solo := newPair(t)[:1]

	if ev := e.CreateEvent(1, lattice.Coord{}, TriggerProbe, "", solo); ev != nil {
		t.Errorf("event created for single occupant: %+v", ev)
	}
	if ev := e.CreateEvent(1, lattice.Coord{}, TriggerProbe, "", nil); ev != nil {
		t.Errorf("event created for empty set: %+v", ev)
	}
	// Resolving a nil event is a no-op.
	if err := e.Resolve(nil, nil); err != nil {
		t.Errorf("Resolve(nil) = %v", err)
	}
}

func TestResolveRejectsOrderingMismatch(t *testing.T) {
	e := mustEngine(t, ResolutionSymbolicMutation)
	pair := newPair(t)

	ev := e.CreateEvent(1, lattice.Coord{}, TriggerProbe, "", pair)
	swapped := []*identity.Identity{pair[1], pair[0]}
	if err := e.Resolve(ev, swapped); err == nil {
		t.Error("Resolve accepted reordered affected set")
	}
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(Resolution("exclusion"), 0.05); err == nil {
		t.Error("unknown policy accepted")
	}
	if _, err := NewEngine(ResolutionPhaseSeparation, 1.5); err == nil {
		t.Error("out-of-range phase offset accepted")
	}
}

func TestEventIDsAreSequential(t *testing.T) {
	e := mustEngine(t, ResolutionSymbolicMutation)
	a := e.CreateEvent(1, lattice.Coord{}, TriggerProbe, "", newPair(t))
	b := e.CreateEvent(1, lattice.Coord{X: 1}, TriggerProbe, "", newPair(t))
	if a.ID != "evt-000001" || b.ID != "evt-000002" {
		t.Errorf("event ids = %q, %q", a.ID, b.ID)
	}
}
