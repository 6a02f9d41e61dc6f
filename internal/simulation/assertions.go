package simulation

import (
	"testing"

	"github.com/nvandessel/tick-loop/internal/identity"
	"github.com/nvandessel/tick-loop/internal/snapshot"
)

// identityAt finds an identity's state in a given tick's snapshot.
func identityAt(result Result, tick int, id string) (snapshot.IdentityState, bool) {
	if tick < 1 || tick > len(result.History) {
		return snapshot.IdentityState{}, false
	}
	for _, st := range result.History[tick-1].Identities {
		if st.ID == id {
			return st, true
		}
	}
	return snapshot.IdentityState{}, false
}

// AssertStatusAt asserts an identity's status at a given tick.
func AssertStatusAt(t *testing.T, result Result, tick int, id string, want identity.Status) {
	t.Helper()
	st, ok := identityAt(result, tick, id)
	if !ok {
		t.Errorf("AssertStatusAt: tick %d: identity %s not in snapshot", tick, id)
		return
	}
	if st.Status != want {
		t.Errorf("AssertStatusAt: tick %d: identity %s status %q, want %q", tick, id, st.Status, want)
	}
}

// AssertAncestryAt asserts an identity's ancestry at a given tick.
func AssertAncestryAt(t *testing.T, result Result, tick int, id string, want string) {
	t.Helper()
	st, ok := identityAt(result, tick, id)
	if !ok {
		t.Errorf("AssertAncestryAt: tick %d: identity %s not in snapshot", tick, id)
		return
	}
	if st.Ancestry != want {
		t.Errorf("AssertAncestryAt: tick %d: identity %s ancestry %q, want %q", tick, id, st.Ancestry, want)
	}
}

// AssertEventCountAt asserts how many detection events fired on a given tick.
func AssertEventCountAt(t *testing.T, result Result, tick int, want int) {
	t.Helper()
	if tick < 1 || tick > len(result.History) {
		t.Errorf("AssertEventCountAt: tick %d outside recorded history (%d ticks)", tick, len(result.History))
		return
	}
	got := len(result.History[tick-1].Events)
	if got != want {
		t.Errorf("AssertEventCountAt: tick %d: %d events, want %d", tick, got, want)
	}
}

// AssertNoEvents asserts that no detection events fired in any tick.
func AssertNoEvents(t *testing.T, result Result) {
	t.Helper()
	for _, snap := range result.History {
		if len(snap.Events) > 0 {
			t.Errorf("AssertNoEvents: tick %d fired %d events", snap.Tick, len(snap.Events))
		}
	}
}

// AssertEchoNonNegative asserts the reinforcement field never goes negative.
func AssertEchoNonNegative(t *testing.T, result Result) {
	t.Helper()
	for _, snap := range result.History {
		if snap.Echo.Min < 0 {
			t.Errorf("AssertEchoNonNegative: tick %d: field minimum %v", snap.Tick, snap.Echo.Min)
		}
	}
}

// AssertEchoMaxDecays asserts the field maximum strictly decreases across the
// run. Meaningful for trials where no identity ever reinforces the field and
// the seeded reinforcement stays concentrated: decay shrinks the peak faster
// than neighbor inheritance can feed it.
func AssertEchoMaxDecays(t *testing.T, result Result) {
	t.Helper()
	for i := 1; i < len(result.History); i++ {
		prev, cur := result.History[i-1].Echo.Max, result.History[i].Echo.Max
		if prev > 0 && cur >= prev {
			t.Errorf("AssertEchoMaxDecays: tick %d: max %v did not decrease from %v",
				result.History[i].Tick, cur, prev)
		}
	}
}

// AssertPhasesInRange asserts every identity's phase stays in [0, 1) at
// every tick.
func AssertPhasesInRange(t *testing.T, result Result) {
	t.Helper()
	for _, snap := range result.History {
		for _, st := range snap.Identities {
			if st.Theta < 0 || st.Theta >= 1 {
				t.Errorf("AssertPhasesInRange: tick %d: identity %s theta %v", snap.Tick, st.ID, st.Theta)
			}
		}
	}
}

// AssertOccupancyAt asserts the registry's occupant count at a position key
// (the "x,y,z" form) for a given tick.
func AssertOccupancyAt(t *testing.T, result Result, tick int, posKey string, want int) {
	t.Helper()
	if tick < 1 || tick > len(result.History) {
		t.Errorf("AssertOccupancyAt: tick %d outside recorded history (%d ticks)", tick, len(result.History))
		return
	}
	got := len(result.History[tick-1].Registry[posKey])
	if got != want {
		t.Errorf("AssertOccupancyAt: tick %d: %d occupants at %s, want %d", tick, got, posKey, want)
	}
}
